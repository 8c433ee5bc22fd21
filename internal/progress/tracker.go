// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package progress

import (
	"context"
	"time"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/models"
)

// RunStore persists run records. Implemented by the database layer.
type RunStore interface {
	InsertRun(ctx context.Context, run *models.RunRecord) error
	UpdateRun(ctx context.Context, run *models.RunRecord) error
}

// Tracker creates and advances run records, mirroring every transition onto
// the event bus.
type Tracker struct {
	store RunStore
	bus   *Bus
}

// NewTracker creates a tracker. A nil bus disables event publication.
func NewTracker(store RunStore, bus *Bus) *Tracker {
	return &Tracker{store: store, bus: bus}
}

// Run is the handle for one in-flight generation run.
type Run struct {
	tracker  *Tracker
	record   models.RunRecord
	ownerKey string
}

// Start creates the run record for one profile in running state.
func (t *Tracker) Start(ctx context.Context, profile *models.TasteProfile) (*Run, error) {
	record := models.RunRecord{
		ProfileID: profile.ID,
		OwnerID:   profile.OwnerID,
		MediaType: profile.MediaType,
		Status:    models.RunStatusRunning,
	}
	if err := t.store.InsertRun(ctx, &record); err != nil {
		return nil, err
	}

	run := &Run{tracker: t, record: record, ownerKey: profile.OwnerKey()}
	run.publish()
	return run, nil
}

// ID returns the run record id.
func (r *Run) ID() string {
	return r.record.ID
}

// SetStep records the phase the run is in and persists it, so an operator
// can see where a long run currently is.
func (r *Run) SetStep(ctx context.Context, step string) {
	r.record.Step = step
	r.update(ctx)
}

// SetCandidateCount records how many candidates the pipeline selected.
func (r *Run) SetCandidateCount(ctx context.Context, n int) {
	r.record.CandidateCount = n
	r.update(ctx)
}

// SetArtifactCounts records reconciliation results.
func (r *Run) SetArtifactCounts(ctx context.Context, created, deleted int) {
	r.record.ArtifactsCreated = created
	r.record.ArtifactsDeleted = deleted
	r.update(ctx)
}

// Complete marks the run as finished successfully.
func (r *Run) Complete(ctx context.Context) {
	r.finish(ctx, models.RunStatusCompleted, "")
}

// Fail marks the run as failed with the given error.
func (r *Run) Fail(ctx context.Context, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.finish(ctx, models.RunStatusFailed, msg)
}

// Cancel marks the run as cooperatively cancelled.
func (r *Run) Cancel(ctx context.Context) {
	r.finish(ctx, models.RunStatusCancelled, "")
}

func (r *Run) finish(ctx context.Context, status models.RunStatus, errMsg string) {
	if r.record.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	r.record.Status = status
	r.record.Error = errMsg
	r.record.CompletedAt = &now
	r.update(ctx)
}

// update persists the record and publishes the transition. Persistence
// failures are logged; a lost progress update must not fail the run itself.
func (r *Run) update(ctx context.Context) {
	if err := r.tracker.store.UpdateRun(ctx, &r.record); err != nil {
		logging.Warn().Err(err).Str("run_id", r.record.ID).Msg("Failed to persist run update")
	}
	r.publish()
}

func (r *Run) publish() {
	if r.tracker.bus == nil {
		return
	}
	event := RunEvent{
		RunID:            r.record.ID,
		ProfileID:        r.record.ProfileID,
		OwnerKey:         r.ownerKey,
		Status:           r.record.Status,
		Step:             r.record.Step,
		Error:            r.record.Error,
		CandidateCount:   r.record.CandidateCount,
		ArtifactsCreated: r.record.ArtifactsCreated,
		ArtifactsDeleted: r.record.ArtifactsDeleted,
	}
	if err := r.tracker.bus.Publish(event); err != nil {
		logging.Debug().Err(err).Str("run_id", r.record.ID).Msg("Failed to publish run event")
	}
}
