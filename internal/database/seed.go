// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/models"
)

// seedEmbeddingDim is the vector dimension of the mock catalog.
const seedEmbeddingDim = 16

// SeedMockData seeds the database with a small catalog, one demo profile and
// some watch history. Intended for demos and first-run exploration only; it
// is a no-op when content already exists.
func (db *DB) SeedMockData(ctx context.Context) error {
	var existing int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`).Scan(&existing); err != nil {
		return fmt.Errorf("count content items: %w", err)
	}
	if existing > 0 {
		logging.Debug().Int64("items", existing).Msg("Skipping mock data seed, catalog not empty")
		return nil
	}

	logging.Info().Msg("Seeding database with mock catalog...")

	// Deterministic embeddings keep demo recommendations stable across
	// restarts.
	rng := rand.New(rand.NewSource(7))

	type seedItem struct {
		title   string
		year    int
		mt      models.MediaType
		genres  []string
		rating  float64
		policy  int
		cluster int // items in one cluster get nearby embeddings
	}

	items := []seedItem{
		{"The Long Haul", 1999, models.MediaTypeMovie, []string{"Drama", "Crime"}, 8.6, 4, 0},
		{"Night Circuit", 2004, models.MediaTypeMovie, []string{"Crime", "Thriller"}, 8.1, 4, 0},
		{"Cold Ledger", 2011, models.MediaTypeMovie, []string{"Crime", "Drama"}, 7.8, 3, 0},
		{"Paper Harbor", 2016, models.MediaTypeMovie, []string{"Drama"}, 7.2, 2, 0},
		{"Static Bloom", 2019, models.MediaTypeMovie, []string{"Sci-Fi", "Drama"}, 7.9, 2, 1},
		{"Orbital Decay", 2013, models.MediaTypeMovie, []string{"Sci-Fi", "Thriller"}, 8.3, 3, 1},
		{"The Quiet Array", 2021, models.MediaTypeMovie, []string{"Sci-Fi"}, 6.9, 1, 1},
		{"Lantern Field", 2008, models.MediaTypeMovie, []string{"Family", "Adventure"}, 7.0, 0, 2},
		{"Summer of Maps", 2015, models.MediaTypeMovie, []string{"Family", "Comedy"}, 6.4, 0, 2},
		{"The Salt Path", 2022, models.MediaTypeMovie, []string{"Drama", "Adventure"}, 7.5, 1, 2},
		{"Wire & Smoke", 2002, models.MediaTypeSeries, []string{"Crime", "Drama"}, 9.1, 4, 0},
		{"Terminal North", 2017, models.MediaTypeSeries, []string{"Thriller", "Crime"}, 8.0, 3, 0},
		{"Deep Relay", 2020, models.MediaTypeSeries, []string{"Sci-Fi", "Mystery"}, 7.7, 2, 1},
		{"Harbor Lights", 2012, models.MediaTypeSeries, []string{"Family", "Drama"}, 6.8, 0, 2},
	}

	for i, s := range items {
		rating := s.rating
		policy := s.policy
		item := models.ContentItem{
			ID:              int64(i + 1),
			ExternalID:      fmt.Sprintf("mock-%03d", i+1),
			Title:           s.title,
			Year:            s.year,
			MediaType:       s.mt,
			Overview:        fmt.Sprintf("%s (%d) is part of the bundled demo catalog.", s.title, s.year),
			Genres:          s.genres,
			Directors:       []string{"Demo Director"},
			Actors:          []string{"Demo Lead", "Demo Support"},
			FilePath:        fmt.Sprintf("/media/demo/%s (%d).mkv", s.title, s.year),
			CommunityRating: &rating,
			PolicyRating:    &policy,
			Embedding:       clusterEmbedding(rng, s.cluster),
		}
		if err := db.UpsertContentItem(ctx, &item); err != nil {
			return fmt.Errorf("seed item %q: %w", s.title, err)
		}
	}

	profile := models.TasteProfile{
		ID:             "demo-profile",
		OwnerID:        "demo-user",
		Name:           "Crime Picks",
		MediaType:      models.MediaTypeMovie,
		ExampleItemIDs: []int64{1, 2},
		Active:         true,
	}
	if err := db.CreateTasteProfile(ctx, &profile); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}

	// The demo user has already watched the first example item.
	if err := db.RecordWatch(ctx, profile.OwnerID, 1, profile.CreatedAt); err != nil {
		return fmt.Errorf("seed watch history: %w", err)
	}

	logging.Info().Int("items", len(items)).Msg("Mock catalog seeded")
	return nil
}

// clusterEmbedding builds a unit-ish vector near one of a few fixed cluster
// centers, with small per-item jitter.
func clusterEmbedding(rng *rand.Rand, cluster int) []float64 {
	vec := make([]float64, seedEmbeddingDim)
	for d := range vec {
		center := 0.0
		if d%3 == cluster%3 {
			center = 1.0
		}
		vec[d] = center + rng.NormFloat64()*0.05
	}
	return vec
}
