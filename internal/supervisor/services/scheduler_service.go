// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package services

import (
	"context"
	"time"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/orchestrator"
)

// Synchronizer runs one full sweep over all active targets.
// Satisfied by *orchestrator.Orchestrator.
type Synchronizer interface {
	SyncAll(ctx context.Context) (orchestrator.Summary, error)
}

// SchedulerService runs periodic synchronization sweeps as a supervised
// service.
type SchedulerService struct {
	sync       Synchronizer
	interval   time.Duration
	runOnStart bool
	name       string
}

// NewSchedulerService creates the scheduler. With runOnStart set, a sweep
// fires immediately when the service starts instead of waiting one full
// interval.
func NewSchedulerService(sync Synchronizer, interval time.Duration, runOnStart bool) *SchedulerService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SchedulerService{
		sync:       sync,
		interval:   interval,
		runOnStart: runOnStart,
		name:       "sync-scheduler",
	}
}

// Serve implements suture.Service. Sweep errors are logged, not returned:
// a failed sweep should wait for the next tick, not trigger a supervisor
// restart cycle.
func (s *SchedulerService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("Starting sync scheduler")

	if s.runOnStart {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sync scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SchedulerService) sweep(ctx context.Context) {
	start := time.Now()
	summary, err := s.sync.SyncAll(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Scheduled sweep aborted")
		return
	}
	logging.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Scheduled sweep finished")
}

// String implements fmt.Stringer for suture's log messages.
func (s *SchedulerService) String() string {
	return s.name
}
