// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package config provides centralized configuration for Mirage.
//
// Configuration is loaded in three layers (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config file: optional YAML file (config.yaml) for persistent settings
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	Jellyfin  JellyfinConfig  `koanf:"jellyfin"`
	Database  DatabaseConfig  `koanf:"database"`
	Library   LibraryConfig   `koanf:"library"`
	Recommend RecommendConfig `koanf:"recommend"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Cache     CacheConfig     `koanf:"cache"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// JellyfinConfig holds connection settings for the external media server.
//
// Environment variables:
//   - JELLYFIN_URL: server URL (e.g. http://localhost:8096)
//   - JELLYFIN_API_KEY: API key from Admin Dashboard > API Keys
type JellyfinConfig struct {
	URL     string        `koanf:"url" validate:"required"`
	APIKey  string        `koanf:"api_key" validate:"required"`
	Timeout time.Duration `koanf:"timeout"`

	// PointerMode selects pointer artifact content: "stream" writes a
	// server-streaming URL, "path" writes the item's original file path.
	PointerMode string `koanf:"pointer_mode" validate:"oneof=stream path"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path         string `koanf:"path" validate:"required"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads"` // 0 = runtime.NumCPU()
	SeedMockData bool   `koanf:"seed_mock_data"`
}

// LibraryConfig holds settings for the on-disk virtual libraries.
type LibraryConfig struct {
	// Root is the directory under which one subdirectory per owner key is
	// materialized. The media server must see the same paths.
	Root string `koanf:"root" validate:"required"`

	// DownloadImages enables poster/backdrop materialization.
	DownloadImages bool `koanf:"download_images"`

	// TextWorkers bounds concurrent pointer/sidecar writes per batch.
	TextWorkers int `koanf:"text_workers" validate:"min=1,max=128"`

	// ImageWorkers bounds concurrent image downloads per batch.
	ImageWorkers int `koanf:"image_workers" validate:"min=1,max=64"`

	// ImageRatePerSecond throttles image downloads across a run.
	ImageRatePerSecond float64 `koanf:"image_rate_per_second"`

	// MaxBaseName caps the length of derived artifact base names.
	MaxBaseName int `koanf:"max_base_name" validate:"min=16,max=255"`
}

// RecommendConfig holds candidate pipeline settings.
type RecommendConfig struct {
	// TargetSize is the number of items materialized per profile.
	TargetSize int `koanf:"target_size" validate:"min=1,max=500"`

	// OversampleFactor multiplies TargetSize for the retrieval pool so the
	// sampler has a long tail to draw variety from.
	OversampleFactor int `koanf:"oversample_factor" validate:"min=1,max=10"`

	// WeightFloor prevents zero-weight starvation during sampling.
	WeightFloor float64 `koanf:"weight_floor"`

	// Seed fixes the sampler RNG for reproducible output. 0 seeds from time.
	Seed int64 `koanf:"seed"`
}

// SchedulerConfig holds periodic sweep settings.
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	RunOnStartup bool          `koanf:"run_on_startup"`
}

// CacheConfig holds the Badger artifact cache settings.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServerConfig holds the ops HTTP server settings (healthz, metrics, triggers).
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if err := c.validateJellyfinURL(); err != nil {
		return err
	}
	if c.Recommend.WeightFloor < 0 || c.Recommend.WeightFloor > 1 {
		return fmt.Errorf("recommend.weight_floor must be in [0,1], got %f", c.Recommend.WeightFloor)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateJellyfinURL() error {
	u, err := url.Parse(c.Jellyfin.URL)
	if err != nil {
		return fmt.Errorf("jellyfin.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("jellyfin.url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("jellyfin.url is missing a host")
	}
	return nil
}
