// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package main is the entry point for the Mirage server.
//
// Mirage materializes per-user recommendation libraries as real directories
// of pointer files that an external media server (Jellyfin) indexes as
// ordinary libraries. Each active taste profile is periodically resolved
// into a ranked, diversified candidate list, rendered to .strm pointers,
// .nfo sidecars and artwork on disk, and bound to a virtual library on the
// media server.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, config.yaml, env)
//  2. Database: DuckDB catalog, taste profiles, watch history, run records
//  3. Artifact cache: optional BadgerDB content-hash cache
//  4. Media server: Jellyfin client wrapped in a circuit breaker
//  5. Pipeline: taste-vector retrieval, weighted sampling, planning,
//     filesystem reconciliation, library binding
//  6. Supervisor tree: sync scheduler, event log and ops HTTP server
//     as supervised services (suture v4)
//
// # Configuration
//
// Key environment variables (see config package for the full set):
//   - JELLYFIN_URL, JELLYFIN_API_KEY: media server connection
//   - DATABASE_PATH: DuckDB file location
//   - LIBRARY_ROOT: directory where virtual libraries are materialized;
//     the media server must see the same paths
//   - SCHEDULER_ENABLED, SCHEDULER_INTERVAL: periodic sweep settings
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the scheduler
// stops, in-flight runs are cancelled cooperatively, the HTTP server drains
// with a 10s timeout, and the database and cache are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/miragelib/mirage/internal/api"
	"github.com/miragelib/mirage/internal/artifactcache"
	"github.com/miragelib/mirage/internal/config"
	"github.com/miragelib/mirage/internal/database"
	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/mediaserver"
	"github.com/miragelib/mirage/internal/orchestrator"
	"github.com/miragelib/mirage/internal/progress"
	"github.com/miragelib/mirage/internal/recommend"
	"github.com/miragelib/mirage/internal/reconcile"
	"github.com/miragelib/mirage/internal/supervisor"
	"github.com/miragelib/mirage/internal/supervisor/services"
	"github.com/miragelib/mirage/internal/virtual"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("jellyfin_url", cfg.Jellyfin.URL).
		Str("db_path", cfg.Database.Path).
		Str("library_root", cfg.Library.Root).
		Msg("Starting Mirage")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.SeedMockData {
		logging.Info().Msg("Mock data seeding enabled (SEED_MOCK_DATA=true)")
		if err := db.SeedMockData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("Failed to seed mock data")
		}
	}

	// Optional BadgerDB artifact cache; nil disables skip-unchanged.
	var cache reconcile.Cache
	if cfg.Cache.Enabled {
		store, err := artifactcache.Open(cfg.Cache.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open artifact cache")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing artifact cache")
			}
		}()
		cache = store
		logging.Info().Str("path", cfg.Cache.Path).Msg("Artifact cache enabled")
	}

	// Jellyfin client behind a circuit breaker so provider outages degrade
	// runs instead of hammering a down server.
	jellyfin := mediaserver.NewJellyfinProvider(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey)
	jellyfin.SetTimeout(cfg.Jellyfin.Timeout)
	provider := mediaserver.NewBreakerProvider(jellyfin, "jellyfin")
	if err := provider.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Media server unreachable at startup (will retry)")
	} else {
		logging.Info().Msg("Connected to media server")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sampler := recommend.NewSampler(cfg.Recommend.WeightFloor, cfg.Recommend.Seed)
	pipeline := recommend.NewPipeline(db, sampler, recommend.PipelineConfig{
		TargetSize:       cfg.Recommend.TargetSize,
		OversampleFactor: cfg.Recommend.OversampleFactor,
	}, logging.Logger())

	planner := virtual.NewPlanner(virtual.PlannerConfig{
		MaxBaseName: cfg.Library.MaxBaseName,
		Images:      cfg.Library.DownloadImages,
	})

	var fetcher reconcile.ImageFetcher
	if cfg.Library.DownloadImages {
		fetcher = reconcile.NewHTTPImageFetcher(reconcile.ImageFetcherConfig{
			RatePerSecond: cfg.Library.ImageRatePerSecond,
		})
	}
	reconciler := reconcile.NewReconciler(reconcile.Config{
		Root:         cfg.Library.Root,
		TextWorkers:  cfg.Library.TextWorkers,
		ImageWorkers: cfg.Library.ImageWorkers,
	}, fetcher, cache)

	bus := progress.NewBus(progress.NewWatermillLogger(logging.Logger()))
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	tracker := progress.NewTracker(db, bus)

	orch := orchestrator.New(
		db,
		pipeline,
		planner,
		reconciler,
		mediaserver.NewBinder(provider),
		provider,
		tracker,
		orchestrator.PointerMode(cfg.Jellyfin.PointerMode),
	)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Scheduler.Enabled {
		tree.AddPipelineService(services.NewSchedulerService(
			orch,
			cfg.Scheduler.Interval,
			cfg.Scheduler.RunOnStartup,
		))
		logging.Info().
			Dur("interval", cfg.Scheduler.Interval).
			Bool("run_on_startup", cfg.Scheduler.RunOnStartup).
			Msg("Sync scheduler added to supervisor tree")
	} else {
		logging.Info().Msg("Sync scheduler disabled; runs must be triggered via the ops API")
	}

	events := api.NewEventLog(bus, 0)
	tree.AddAPIService(events)

	handler := api.NewHandler(ctx, db, orch, db, provider, events)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Ops HTTP server added to supervisor tree")

	logging.Info().Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
