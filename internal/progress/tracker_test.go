// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/miragelib/mirage/internal/models"
)

type memRunStore struct {
	inserted []models.RunRecord
	updated  []models.RunRecord
}

func (s *memRunStore) InsertRun(_ context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = "run-1"
	}
	s.inserted = append(s.inserted, *run)
	return nil
}

func (s *memRunStore) UpdateRun(_ context.Context, run *models.RunRecord) error {
	s.updated = append(s.updated, *run)
	return nil
}

func testProfile() *models.TasteProfile {
	return &models.TasteProfile{
		ID:        "p-1",
		OwnerID:   "alice",
		Name:      "Favorites",
		MediaType: models.MediaTypeMovie,
	}
}

func TestTrackerLifecycle(t *testing.T) {
	store := &memRunStore{}
	tracker := NewTracker(store, nil)
	ctx := context.Background()

	run, err := tracker.Start(ctx, testProfile())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0].Status != models.RunStatusRunning {
		t.Fatalf("inserted = %+v", store.inserted)
	}

	run.SetStep(ctx, "retrieval")
	run.SetCandidateCount(ctx, 30)
	run.SetArtifactCounts(ctx, 60, 2)
	run.Complete(ctx)

	last := store.updated[len(store.updated)-1]
	if last.Status != models.RunStatusCompleted || last.CompletedAt == nil {
		t.Errorf("final record = %+v", last)
	}
	if last.Step != "retrieval" || last.CandidateCount != 30 || last.ArtifactsCreated != 60 || last.ArtifactsDeleted != 2 {
		t.Errorf("accumulated fields lost: %+v", last)
	}

	// Terminal records are immutable.
	run.Fail(ctx, errors.New("late failure"))
	last = store.updated[len(store.updated)-1]
	if last.Status != models.RunStatusCompleted {
		t.Errorf("status after late Fail = %q", last.Status)
	}
}

func TestTrackerFailure(t *testing.T) {
	store := &memRunStore{}
	tracker := NewTracker(store, nil)
	ctx := context.Background()

	run, err := tracker.Start(ctx, testProfile())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	run.Fail(ctx, errors.New("media server unreachable"))

	last := store.updated[len(store.updated)-1]
	if last.Status != models.RunStatusFailed || last.Error != "media server unreachable" {
		t.Errorf("record = %+v", last)
	}
}

func TestTrackerPublishesEvents(t *testing.T) {
	bus := NewBus(nil)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	tracker := NewTracker(&memRunStore{}, bus)
	run, err := tracker.Start(ctx, testProfile())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	run.Complete(ctx)

	var events []RunEvent
	timeout := time.After(2 * time.Second)
	for len(events) < 2 {
		select {
		case msg := <-messages:
			event, err := DecodeEvent(msg)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			msg.Ack()
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(events))
		}
	}

	if events[0].Status != models.RunStatusRunning || events[1].Status != models.RunStatusCompleted {
		t.Errorf("event statuses = %q, %q", events[0].Status, events[1].Status)
	}
	if events[0].OwnerKey != "alice-p-1" {
		t.Errorf("owner key = %q", events[0].OwnerKey)
	}
	if events[0].At.IsZero() {
		t.Error("event timestamp not set")
	}
}
