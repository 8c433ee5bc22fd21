// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package recommend

import (
	"context"
	"errors"

	"github.com/miragelib/mirage/internal/models"
)

// ErrIndexUnavailable is returned by a DataProvider when nearest-neighbor
// retrieval cannot be served (no embeddings stored, vector dimension
// mismatch). It is not a failure: the caller silently degrades to the
// popularity fallback.
var ErrIndexUnavailable = errors.New("similarity index unavailable")

// ErrProfileNotFound is returned when a taste profile does not exist. This is
// a hard per-target error surfaced to the orchestrator.
var ErrProfileNotFound = errors.New("taste profile not found")

// Candidate is a scored content item proposed for inclusion. Ephemeral;
// exists only within one pipeline run.
type Candidate struct {
	ItemID     int64
	ExternalID string
	Title      string
	Year       int
	Score      float64 // similarity (0-1) when vector-based, popularity proxy otherwise
}

// SelectedCandidate is a candidate chosen by the sampler. Rank is the final
// stable output order (1 = best); rank 1 maps to the "most recently added"
// position in the external system.
type SelectedCandidate struct {
	Candidate
	Rank int
}

// Filters are the hard predicates applied during retrieval.
type Filters struct {
	// MediaType restricts retrieval to one content kind.
	MediaType models.MediaType

	// Genres requires a non-empty intersection with an item's genre list.
	// Empty means no genre restriction.
	Genres []string

	// PolicyCeiling excludes items whose ordinal content rating exceeds the
	// ceiling or is unset. Nil means no restriction.
	PolicyCeiling *int
}

// Neighbor is one row of a nearest-neighbor query.
type Neighbor struct {
	ItemID     int64
	ExternalID string
	Title      string
	Year       int
	Distance   float64 // cosine distance, 0 = identical
}

// RatedItem is one row of the popularity-ordered fallback query.
type RatedItem struct {
	ItemID     int64
	ExternalID string
	Title      string
	Year       int
	Rating     *float64 // community rating 0-10, nil when unrated
}

// DataProvider supplies retrieval and profile data. Implemented by the
// database layer.
type DataProvider interface {
	// TasteProfile returns the profile or ErrProfileNotFound.
	TasteProfile(ctx context.Context, profileID string) (*models.TasteProfile, error)

	// ItemEmbeddings returns stored embeddings for the given item ids.
	// Items without an embedding are omitted from the result.
	ItemEmbeddings(ctx context.Context, itemIDs []int64) ([][]float64, error)

	// ConsumedItemIDs returns ids of items the owner has already watched.
	ConsumedItemIDs(ctx context.Context, ownerID string) (map[int64]struct{}, error)

	// NearestNeighbors returns up to limit rows ordered by ascending vector
	// distance, restricted to the filter predicate. Returns
	// ErrIndexUnavailable when no similarity retrieval can be served.
	NearestNeighbors(ctx context.Context, vector []float64, f Filters, limit int) ([]Neighbor, error)

	// TopRated returns up to limit rows ordered by community rating
	// descending, nulls last, restricted to the filter predicate.
	TopRated(ctx context.Context, f Filters, limit int) ([]RatedItem, error)
}

// neutralScore is assigned to unrated items in the fallback ranking.
const neutralScore = 0.5

// ratingMax normalizes community ratings into [0,1].
const ratingMax = 10.0
