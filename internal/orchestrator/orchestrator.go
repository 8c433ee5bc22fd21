// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/mediaserver"
	"github.com/miragelib/mirage/internal/metrics"
	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/progress"
	"github.com/miragelib/mirage/internal/recommend"
	"github.com/miragelib/mirage/internal/reconcile"
	"github.com/miragelib/mirage/internal/virtual"
)

// PointerMode selects what pointer artifacts contain.
type PointerMode string

const (
	// PointerModeStream writes server stream URLs. Works when the library
	// host cannot reach source media directly.
	PointerModeStream PointerMode = "stream"
	// PointerModePath writes original file paths. Requires shared storage
	// between the library host and the media files.
	PointerModePath PointerMode = "path"
)

// Store is the catalog surface the orchestrator needs.
type Store interface {
	TasteProfile(ctx context.Context, profileID string) (*models.TasteProfile, error)
	ListActiveProfiles(ctx context.Context) ([]*models.TasteProfile, error)
	GetContentItems(ctx context.Context, ids []int64) ([]models.ContentItem, error)
}

// Summary reports the outcome of a full synchronization run.
type Summary struct {
	Succeeded int
	Failed    int
}

// Orchestrator runs the generation pipeline for target profiles.
type Orchestrator struct {
	store       Store
	pipeline    *recommend.Pipeline
	planner     *virtual.Planner
	reconciler  *reconcile.Reconciler
	binder      *mediaserver.Binder
	provider    mediaserver.Provider
	tracker     *progress.Tracker
	pointerMode PointerMode

	// ownerLocks serializes runs per owner key. Two profiles of one user
	// are distinct owners and may run concurrently.
	ownerLocks sync.Map
}

// New creates an orchestrator.
func New(
	store Store,
	pipeline *recommend.Pipeline,
	planner *virtual.Planner,
	reconciler *reconcile.Reconciler,
	binder *mediaserver.Binder,
	provider mediaserver.Provider,
	tracker *progress.Tracker,
	pointerMode PointerMode,
) *Orchestrator {
	if pointerMode == "" {
		pointerMode = PointerModeStream
	}
	return &Orchestrator{
		store:       store,
		pipeline:    pipeline,
		planner:     planner,
		reconciler:  reconciler,
		binder:      binder,
		provider:    provider,
		tracker:     tracker,
		pointerMode: pointerMode,
	}
}

// SyncAll runs the pipeline for every active profile, sequentially. Target
// failures are counted and logged; only context cancellation aborts the
// sweep.
func (o *Orchestrator) SyncAll(ctx context.Context) (Summary, error) {
	profiles, err := o.store.ListActiveProfiles(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list targets: %w", err)
	}

	var summary Summary
	for _, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := o.SyncProfile(ctx, profile.ID); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			summary.Failed++
			metrics.TargetsProcessed.WithLabelValues("failed").Inc()
			logging.Error().Err(err).Str("profile_id", profile.ID).Msg("Target run failed")
			continue
		}
		summary.Succeeded++
		metrics.TargetsProcessed.WithLabelValues("succeeded").Inc()
	}

	logging.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Synchronization sweep finished")
	return summary, nil
}

// SyncProfile runs the full pipeline for one profile.
func (o *Orchestrator) SyncProfile(ctx context.Context, profileID string) error {
	start := time.Now()

	status, err := o.runTarget(ctx, profileID)
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	return err
}

// runTarget executes the phases of one generation run. The returned status
// is always terminal.
func (o *Orchestrator) runTarget(ctx context.Context, profileID string) (models.RunStatus, error) {
	profile, err := o.store.TasteProfile(ctx, profileID)
	if err != nil {
		return models.RunStatusFailed, fmt.Errorf("resolve target: %w", err)
	}

	unlock := o.lockOwner(profile.OwnerKey())
	defer unlock()

	run, err := o.tracker.Start(ctx, profile)
	if err != nil {
		return models.RunStatusFailed, fmt.Errorf("start run record: %w", err)
	}

	status, err := o.runPhases(ctx, run, profile)
	switch status {
	case models.RunStatusCompleted:
		run.Complete(ctx)
	case models.RunStatusCancelled:
		run.Cancel(ctx)
	default:
		run.Fail(ctx, err)
	}
	return status, err
}

func (o *Orchestrator) runPhases(ctx context.Context, run *progress.Run, profile *models.TasteProfile) (models.RunStatus, error) {
	ownerKey := profile.OwnerKey()

	// Phase 1: retrieval and selection.
	if err := checkCancelled(ctx); err != nil {
		return models.RunStatusCancelled, err
	}
	run.SetStep(ctx, "retrieval")

	selected, _, err := o.pipeline.Generate(ctx, profile.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.RunStatusCancelled, err
		}
		return models.RunStatusFailed, fmt.Errorf("generate candidates: %w", err)
	}
	run.SetCandidateCount(ctx, len(selected))

	// Phase 2: plan the artifact set.
	if err := checkCancelled(ctx); err != nil {
		return models.RunStatusCancelled, err
	}
	run.SetStep(ctx, "planning")

	planItems, err := o.planItems(ctx, selected)
	if err != nil {
		return models.RunStatusFailed, fmt.Errorf("plan items: %w", err)
	}
	entries, err := o.planner.Plan(ownerKey, planItems)
	if err != nil {
		return models.RunStatusFailed, fmt.Errorf("plan artifacts: %w", err)
	}

	// Phase 3: converge the library directory.
	if err := checkCancelled(ctx); err != nil {
		return models.RunStatusCancelled, err
	}
	run.SetStep(ctx, "reconcile")

	result, err := o.reconciler.Reconcile(ctx, ownerKey, entries)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return models.RunStatusCancelled, err
		}
		return models.RunStatusFailed, fmt.Errorf("reconcile library: %w", err)
	}
	run.SetArtifactCounts(ctx, result.Created, result.Deleted)

	// Phase 4: bind to the media server and trigger a scan.
	if err := checkCancelled(ctx); err != nil {
		return models.RunStatusCancelled, err
	}
	run.SetStep(ctx, "bind")

	libraryID, err := o.binder.EnsureBound(ctx, profile.LibraryName(), o.reconciler.Dir(ownerKey), profile.MediaType, profile.OwnerID)
	if err != nil {
		return models.RunStatusFailed, fmt.Errorf("bind library: %w", err)
	}

	logging.Info().
		Str("run_id", run.ID()).
		Str("owner_key", ownerKey).
		Str("library_id", libraryID).
		Int("candidates", len(selected)).
		Int("created", result.Created).
		Int("deleted", result.Deleted).
		Int("errors", result.Errors).
		Msg("Run completed")
	return models.RunStatusCompleted, nil
}

// planItems joins the selection with full catalog rows and resolves pointer
// content per the configured mode.
func (o *Orchestrator) planItems(ctx context.Context, selected []recommend.SelectedCandidate) ([]virtual.PlanItem, error) {
	ids := make([]int64, len(selected))
	for i, s := range selected {
		ids[i] = s.ItemID
	}
	items, err := o.store.GetContentItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	planItems := make([]virtual.PlanItem, 0, len(selected))
	for _, s := range selected {
		item, ok := byID[s.ItemID]
		if !ok {
			// The catalog changed between retrieval and planning. Skip the
			// orphan; the next run will not select it again.
			logging.Warn().Int64("item_id", s.ItemID).Msg("Selected item missing from catalog")
			continue
		}
		planItems = append(planItems, virtual.PlanItem{
			Item:           item,
			Rank:           s.Rank,
			PointerContent: o.pointerContent(&item),
		})
	}
	return planItems, nil
}

// pointerContent resolves what the item's pointer artifact contains. Path
// mode falls back to a stream URL for items with no known file path.
func (o *Orchestrator) pointerContent(item *models.ContentItem) string {
	if o.pointerMode == PointerModePath && item.FilePath != "" {
		return item.FilePath
	}
	return o.provider.StreamURL(item.ExternalID)
}

// lockOwner acquires the per-owner mutex and returns its unlock func.
func (o *Orchestrator) lockOwner(ownerKey string) func() {
	muAny, _ := o.ownerLocks.LoadOrStore(ownerKey, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
