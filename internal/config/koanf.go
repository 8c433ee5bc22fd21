// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mirage/config.yaml",
	"/etc/mirage/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Jellyfin: JellyfinConfig{
			URL:         "",
			APIKey:      "",
			Timeout:     30 * time.Second,
			PointerMode: "stream",
		},
		Database: DatabaseConfig{
			Path:         "/data/mirage.duckdb",
			MaxMemory:    "1GB",
			Threads:      0, // 0 = use runtime.NumCPU()
			SeedMockData: false,
		},
		Library: LibraryConfig{
			Root:               "/data/libraries",
			DownloadImages:     true,
			TextWorkers:        20,
			ImageWorkers:       10,
			ImageRatePerSecond: 5,
			MaxBaseName:        120,
		},
		Recommend: RecommendConfig{
			TargetSize:       30,
			OversampleFactor: 3,
			WeightFloor:      0.1,
			Seed:             0,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Interval:     6 * time.Hour,
			RunOnStartup: false,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "/data/cache",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8686,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// JELLYFIN_API_KEY -> jellyfin.api_key, LIBRARY_ROOT -> library.root
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - JELLYFIN_URL -> jellyfin.url
//   - JELLYFIN_API_KEY -> jellyfin.api_key
//   - LIBRARY_ROOT -> library.root
//   - RECOMMEND_TARGET_SIZE -> recommend.target_size
//   - DUCKDB_PATH -> database.path
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	// Exact mappings where the section prefix does not split cleanly on the
	// first underscore.
	envMappings := map[string]string{
		"jellyfin_url":          "jellyfin.url",
		"jellyfin_api_key":      "jellyfin.api_key",
		"jellyfin_timeout":      "jellyfin.timeout",
		"jellyfin_pointer_mode": "jellyfin.pointer_mode",

		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",
		"seed_mock_data":    "database.seed_mock_data",

		"library_root":             "library.root",
		"library_download_images":  "library.download_images",
		"library_text_workers":     "library.text_workers",
		"library_image_workers":    "library.image_workers",
		"library_image_rate":       "library.image_rate_per_second",
		"library_max_base_name":    "library.max_base_name",
		"recommend_target_size":    "recommend.target_size",
		"recommend_oversample":     "recommend.oversample_factor",
		"recommend_weight_floor":   "recommend.weight_floor",
		"recommend_seed":           "recommend.seed",
		"scheduler_enabled":        "scheduler.enabled",
		"scheduler_interval":       "scheduler.interval",
		"scheduler_run_on_startup": "scheduler.run_on_startup",
		"cache_enabled":            "cache.enabled",
		"cache_path":               "cache.path",
		"http_host":                "server.host",
		"http_port":                "server.port",
		"http_timeout":             "server.timeout",
		"log_level":                "logging.level",
		"log_format":               "logging.format",
		"log_caller":               "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are ignored rather than spuriously merged into the
	// config tree.
	return ""
}
