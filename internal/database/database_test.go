// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/miragelib/mirage/internal/config"
	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/recommend"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.duckdb")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func seedItem(t *testing.T, db *DB, id int64, title string, mt models.MediaType, genres []string, rating *float64, policy *int, embedding []float64) {
	t.Helper()
	item := models.ContentItem{
		ID:              id,
		ExternalID:      title,
		Title:           title,
		Year:            2000 + int(id),
		MediaType:       mt,
		Genres:          genres,
		CommunityRating: rating,
		PolicyRating:    policy,
		Embedding:       embedding,
	}
	if err := db.UpsertContentItem(context.Background(), &item); err != nil {
		t.Fatalf("UpsertContentItem(%q) error = %v", title, err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestTasteProfileCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	profile := models.TasteProfile{
		OwnerID:        "alice",
		Name:           "Favorites",
		MediaType:      models.MediaTypeMovie,
		GenreFilters:   []string{"Crime"},
		ExampleItemIDs: []int64{1, 2, 3},
		PolicyCeiling:  ptr(3),
		Active:         true,
	}
	if err := db.CreateTasteProfile(ctx, &profile); err != nil {
		t.Fatalf("CreateTasteProfile() error = %v", err)
	}
	if profile.ID == "" {
		t.Fatal("profile id not generated")
	}

	got, err := db.TasteProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("TasteProfile() error = %v", err)
	}
	if got.OwnerID != "alice" || got.Name != "Favorites" || len(got.GenreFilters) != 1 {
		t.Errorf("profile = %+v", got)
	}
	if len(got.ExampleItemIDs) != 3 || got.ExampleItemIDs[2] != 3 {
		t.Errorf("example ids = %v", got.ExampleItemIDs)
	}
	if got.PolicyCeiling == nil || *got.PolicyCeiling != 3 {
		t.Errorf("policy ceiling = %v", got.PolicyCeiling)
	}

	got.Name = "Renamed"
	got.Active = false
	if err := db.UpdateTasteProfile(ctx, got); err != nil {
		t.Fatalf("UpdateTasteProfile() error = %v", err)
	}
	active, err := db.ListActiveProfiles(ctx)
	if err != nil {
		t.Fatalf("ListActiveProfiles() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active profiles = %d, want 0 after deactivation", len(active))
	}

	if err := db.DeleteTasteProfile(ctx, profile.ID); err != nil {
		t.Fatalf("DeleteTasteProfile() error = %v", err)
	}
	if _, err := db.TasteProfile(ctx, profile.ID); !errors.Is(err, recommend.ErrProfileNotFound) {
		t.Errorf("TasteProfile() after delete error = %v, want ErrProfileNotFound", err)
	}
}

func TestTasteProfileNotFound(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.TasteProfile(context.Background(), "missing"); !errors.Is(err, recommend.ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
	if err := db.UpdateTasteProfile(context.Background(), &models.TasteProfile{ID: "missing", MediaType: models.MediaTypeMovie}); !errors.Is(err, recommend.ErrProfileNotFound) {
		t.Errorf("update error = %v, want ErrProfileNotFound", err)
	}
}

func TestConsumedItemIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 2} {
		if err := db.RecordWatch(ctx, "alice", id, time.Now()); err != nil {
			t.Fatalf("RecordWatch() error = %v", err)
		}
	}
	if err := db.RecordWatch(ctx, "bob", 9, time.Now()); err != nil {
		t.Fatalf("RecordWatch() error = %v", err)
	}

	consumed, err := db.ConsumedItemIDs(ctx, "alice")
	if err != nil {
		t.Fatalf("ConsumedItemIDs() error = %v", err)
	}
	if len(consumed) != 2 {
		t.Errorf("consumed = %v, want ids 1 and 2", consumed)
	}
	if _, ok := consumed[9]; ok {
		t.Error("bob's history leaked into alice's consumed set")
	}
}

func TestNearestNeighborsOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedItem(t, db, 1, "near", models.MediaTypeMovie, []string{"Crime"}, ptr(8.0), ptr(2), []float64{1, 0, 0})
	seedItem(t, db, 2, "far", models.MediaTypeMovie, []string{"Crime"}, ptr(7.0), ptr(2), []float64{0, 1, 0})
	seedItem(t, db, 3, "mid", models.MediaTypeMovie, []string{"Crime"}, ptr(6.0), ptr(2), []float64{1, 1, 0})
	seedItem(t, db, 4, "no-vector", models.MediaTypeMovie, []string{"Crime"}, ptr(9.0), ptr(2), nil)

	got, err := db.NearestNeighbors(ctx, []float64{1, 0, 0}, recommend.Filters{MediaType: models.MediaTypeMovie}, 10)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d neighbors, want 3 (no-vector item excluded)", len(got))
	}
	if got[0].Title != "near" || got[1].Title != "mid" || got[2].Title != "far" {
		t.Errorf("order = %q, %q, %q", got[0].Title, got[1].Title, got[2].Title)
	}
	if got[0].Distance > 1e-9 {
		t.Errorf("identical vector distance = %v, want ~0", got[0].Distance)
	}
}

func TestNearestNeighborsIndexUnavailable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Catalog has items but none with an embedding of the query dimension.
	seedItem(t, db, 1, "plain", models.MediaTypeMovie, nil, ptr(7.0), nil, nil)
	seedItem(t, db, 2, "other-dim", models.MediaTypeMovie, nil, ptr(7.0), nil, []float64{1, 0})

	_, err := db.NearestNeighbors(ctx, []float64{1, 0, 0}, recommend.Filters{MediaType: models.MediaTypeMovie}, 10)
	if !errors.Is(err, recommend.ErrIndexUnavailable) {
		t.Errorf("error = %v, want ErrIndexUnavailable", err)
	}
}

func TestRetrievalFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	vec := []float64{1, 0, 0}
	seedItem(t, db, 1, "crime-pg", models.MediaTypeMovie, []string{"Crime"}, ptr(8.0), ptr(1), vec)
	seedItem(t, db, 2, "crime-mature", models.MediaTypeMovie, []string{"Crime"}, ptr(9.0), ptr(4), vec)
	seedItem(t, db, 3, "crime-unrated", models.MediaTypeMovie, []string{"Crime"}, ptr(9.5), nil, vec)
	seedItem(t, db, 4, "comedy", models.MediaTypeMovie, []string{"Comedy"}, ptr(7.0), ptr(1), vec)
	seedItem(t, db, 5, "series", models.MediaTypeSeries, []string{"Crime"}, ptr(8.5), ptr(1), vec)

	filters := recommend.Filters{
		MediaType:     models.MediaTypeMovie,
		Genres:        []string{"Crime"},
		PolicyCeiling: ptr(2),
	}

	// A policy ceiling excludes items above it and items with no rating at
	// all; other media types and genres never appear.
	neighbors, err := db.NearestNeighbors(ctx, vec, filters, 10)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Title != "crime-pg" {
		t.Errorf("neighbors = %+v, want only crime-pg", neighbors)
	}

	rated, err := db.TopRated(ctx, filters, 10)
	if err != nil {
		t.Fatalf("TopRated() error = %v", err)
	}
	if len(rated) != 1 || rated[0].Title != "crime-pg" {
		t.Errorf("top rated = %+v, want only crime-pg", rated)
	}
}

func TestTopRatedNullsLast(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedItem(t, db, 1, "unrated", models.MediaTypeMovie, nil, nil, nil, nil)
	seedItem(t, db, 2, "good", models.MediaTypeMovie, nil, ptr(8.5), nil, nil)
	seedItem(t, db, 3, "ok", models.MediaTypeMovie, nil, ptr(6.0), nil, nil)

	got, err := db.TopRated(ctx, recommend.Filters{MediaType: models.MediaTypeMovie}, 10)
	if err != nil {
		t.Fatalf("TopRated() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	if got[0].Title != "good" || got[1].Title != "ok" || got[2].Title != "unrated" {
		t.Errorf("order = %q, %q, %q", got[0].Title, got[1].Title, got[2].Title)
	}
	if got[2].Rating != nil {
		t.Errorf("unrated item rating = %v, want nil", got[2].Rating)
	}
}

func TestItemEmbeddings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedItem(t, db, 1, "a", models.MediaTypeMovie, nil, nil, nil, []float64{0.25, 0.75})
	seedItem(t, db, 2, "b", models.MediaTypeMovie, nil, nil, nil, nil)

	got, err := db.ItemEmbeddings(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("ItemEmbeddings() error = %v", err)
	}
	if len(got) != 1 || len(got[0]) != 2 || got[0][1] != 0.75 {
		t.Errorf("embeddings = %v", got)
	}
}

func TestGetContentItems(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	item := models.ContentItem{
		ID:         7,
		ExternalID: "jf-7",
		Title:      "Cold Ledger",
		Year:       2011,
		MediaType:  models.MediaTypeMovie,
		Overview:   "A quiet heist.",
		Genres:     []string{"Crime", "Drama"},
		Directors:  []string{"D. One"},
		Actors:     []string{"A. One", "A. Two"},
		FilePath:   "/media/cold-ledger.mkv",
		PosterURL:  "https://img.example/7.jpg",
	}
	if err := db.UpsertContentItem(ctx, &item); err != nil {
		t.Fatalf("UpsertContentItem() error = %v", err)
	}

	got, err := db.GetContentItems(ctx, []int64{7})
	if err != nil {
		t.Fatalf("GetContentItems() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	if got[0].Title != "Cold Ledger" || len(got[0].Genres) != 2 || got[0].Actors[1] != "A. Two" {
		t.Errorf("item = %+v", got[0])
	}
	if got[0].CommunityRating != nil {
		t.Errorf("rating = %v, want nil", got[0].CommunityRating)
	}
}

func TestRunRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	run := models.RunRecord{
		ProfileID: "p-1",
		OwnerID:   "alice",
		MediaType: models.MediaTypeMovie,
	}
	if err := db.InsertRun(ctx, &run); err != nil {
		t.Fatalf("InsertRun() error = %v", err)
	}
	if run.ID == "" || run.Status != models.RunStatusPending {
		t.Fatalf("run after insert = %+v", run)
	}

	completed := time.Now().UTC()
	run.Status = models.RunStatusCompleted
	run.Step = "done"
	run.CandidateCount = 30
	run.ArtifactsCreated = 60
	run.CompletedAt = &completed
	if err := db.UpdateRun(ctx, &run); err != nil {
		t.Fatalf("UpdateRun() error = %v", err)
	}

	recent, err := db.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d runs, want 1", len(recent))
	}
	got := recent[0]
	if got.Status != models.RunStatusCompleted || got.CandidateCount != 30 || got.ArtifactsCreated != 60 {
		t.Errorf("run = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not persisted")
	}
}

func TestSeedMockDataIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SeedMockData(ctx); err != nil {
		t.Fatalf("first SeedMockData() error = %v", err)
	}
	if err := db.SeedMockData(ctx); err != nil {
		t.Fatalf("second SeedMockData() error = %v", err)
	}

	profiles, err := db.ListActiveProfiles(ctx)
	if err != nil {
		t.Fatalf("ListActiveProfiles() error = %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("got %d profiles, want 1", len(profiles))
	}

	// The demo profile generates end to end through the data provider.
	consumed, err := db.ConsumedItemIDs(ctx, profiles[0].OwnerID)
	if err != nil {
		t.Fatalf("ConsumedItemIDs() error = %v", err)
	}
	if len(consumed) != 1 {
		t.Errorf("consumed = %v, want one watched item", consumed)
	}
}
