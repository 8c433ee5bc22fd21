// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/orchestrator"
	"github.com/miragelib/mirage/internal/recommend"
)

// sweepTimeout bounds a manually triggered full sweep.
const sweepTimeout = 30 * time.Minute

// RunStore provides access to the run history.
type RunStore interface {
	RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Synchronizer triggers generation runs.
type Synchronizer interface {
	SyncAll(ctx context.Context) (orchestrator.Summary, error)
	SyncProfile(ctx context.Context, profileID string) error
}

// Pinger reports reachability of an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the ops endpoints.
type Handler struct {
	store    RunStore
	sync     Synchronizer
	db       Pinger
	provider Pinger
	events   *EventLog

	// baseCtx scopes background sweeps to the process lifetime rather than
	// the triggering request.
	baseCtx  context.Context
	sweeping atomic.Bool
	started  time.Time
}

// NewHandler creates the ops API handler. baseCtx should be the process
// lifecycle context; cancelling it aborts any in-flight background sweep.
func NewHandler(baseCtx context.Context, store RunStore, sync Synchronizer, db, provider Pinger, events *EventLog) *Handler {
	return &Handler{
		store:    store,
		sync:     sync,
		db:       db,
		provider: provider,
		events:   events,
		baseCtx:  baseCtx,
		started:  time.Now(),
	}
}

// healthStatus is the healthz response payload.
type healthStatus struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// Health handles GET /healthz. The database check is fatal; an unreachable
// media server degrades the status but still returns 200 so the scheduler
// keeps running through provider outages.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Checks:        map[string]string{"database": "ok", "media_server": "ok"},
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Status = "unavailable"
		status.Checks["database"] = err.Error()
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status})
		return
	}

	if err := h.provider.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Checks["media_server"] = err.Error()
	}

	rw.Success(status)
}

// triggerRequest is the optional POST /api/v1/runs body.
type triggerRequest struct {
	ProfileID string `json:"profile_id"`
}

// TriggerRun handles POST /api/v1/runs. With a profile_id the target runs
// synchronously; without one a full sweep starts in the background.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		rw.BadRequest("Invalid JSON body")
		return
	}

	if req.ProfileID != "" {
		h.runProfile(r.Context(), rw, req.ProfileID)
		return
	}

	if !h.sweeping.CompareAndSwap(false, true) {
		rw.Conflict("A sweep is already running")
		return
	}

	go func() {
		defer h.sweeping.Store(false)

		ctx, cancel := context.WithTimeout(h.baseCtx, sweepTimeout)
		defer cancel()

		summary, err := h.sync.SyncAll(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("Triggered sweep failed")
			return
		}
		logging.Info().
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("Triggered sweep finished")
	}()

	rw.Accepted(map[string]string{"triggered": "sweep"})
}

func (h *Handler) runProfile(ctx context.Context, rw *ResponseWriter, profileID string) {
	err := h.sync.SyncProfile(ctx, profileID)
	switch {
	case err == nil:
		rw.Success(map[string]string{"triggered": "profile", "profile_id": profileID})
	case errors.Is(err, recommend.ErrProfileNotFound):
		rw.NotFound("Taste profile not found: " + profileID)
	default:
		logging.Error().Err(err).Str("profile_id", profileID).Msg("Triggered run failed")
		rw.InternalError("Generation run failed")
	}
}

// RecentRuns handles GET /api/v1/runs/recent.
func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	runs, err := h.store.RecentRuns(r.Context(), queryLimit(r, 50))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(runs)
}

// RecentEvents handles GET /api/v1/events/recent.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(h.events.Recent(queryLimit(r, 100)))
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}
