// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/miragelib/mirage/internal/metrics"
)

// Source retrieves the scored candidate pool for one pipeline run.
type Source struct {
	provider DataProvider
	logger   zerolog.Logger
}

// NewSource creates a candidate source backed by the given provider.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSource(provider DataProvider, logger zerolog.Logger) *Source {
	return &Source{
		provider: provider,
		logger:   logger.With().Str("component", "candidate-source").Logger(),
	}
}

// FindCandidates returns up to poolSize scored candidates.
//
// With a taste vector it issues a nearest-neighbor query over-fetched by
// len(exclude) to absorb post-filtering, scoring each row 1 − distance.
// Without a taste vector, or when the similarity index is unavailable, it
// orders by community rating descending (score = rating/10, 0.5 when
// unrated). Consumed items are removed before the pool reaches the caller.
func (s *Source) FindCandidates(ctx context.Context, taste []float64, f Filters, exclude map[int64]struct{}, poolSize int) ([]Candidate, error) {
	if poolSize <= 0 {
		return nil, nil
	}

	// Over-fetch so the pool is still full after excluding consumed items.
	limit := poolSize + len(exclude)

	if len(taste) > 0 {
		neighbors, err := s.provider.NearestNeighbors(ctx, taste, f, limit)
		switch {
		case err == nil:
			return s.fromNeighbors(neighbors, exclude, poolSize), nil
		case errors.Is(err, ErrIndexUnavailable):
			// Not an error: degrade to the popularity ranking.
			s.logger.Debug().Msg("similarity index unavailable, using popularity fallback")
		default:
			return nil, fmt.Errorf("nearest neighbor query: %w", err)
		}
	}

	metrics.VectorFallbacksTotal.Inc()

	rated, err := s.provider.TopRated(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated query: %w", err)
	}
	return s.fromRated(rated, exclude, poolSize), nil
}

// fromNeighbors converts neighbor rows to candidates, dropping excluded items.
//
//nolint:gocritic // rangeValCopy: Neighbor passed by value in range, acceptable for clarity
func (s *Source) fromNeighbors(neighbors []Neighbor, exclude map[int64]struct{}, poolSize int) []Candidate {
	pool := make([]Candidate, 0, poolSize)
	for _, n := range neighbors {
		if _, consumed := exclude[n.ItemID]; consumed {
			continue
		}
		score := 1 - n.Distance
		if score < 0 {
			score = 0
		}
		pool = append(pool, Candidate{
			ItemID:     n.ItemID,
			ExternalID: n.ExternalID,
			Title:      n.Title,
			Year:       n.Year,
			Score:      score,
		})
		if len(pool) == poolSize {
			break
		}
	}
	return pool
}

// fromRated converts fallback rows to candidates, dropping excluded items.
// Input order (rating descending, nulls last) is preserved.
//
//nolint:gocritic // rangeValCopy: RatedItem passed by value in range, acceptable for clarity
func (s *Source) fromRated(rated []RatedItem, exclude map[int64]struct{}, poolSize int) []Candidate {
	pool := make([]Candidate, 0, poolSize)
	for _, r := range rated {
		if _, consumed := exclude[r.ItemID]; consumed {
			continue
		}
		score := neutralScore
		if r.Rating != nil {
			score = *r.Rating / ratingMax
		}
		pool = append(pool, Candidate{
			ItemID:     r.ItemID,
			ExternalID: r.ExternalID,
			Title:      r.Title,
			Year:       r.Year,
			Score:      score,
		})
		if len(pool) == poolSize {
			break
		}
	}
	return pool
}
