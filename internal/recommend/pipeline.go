// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package recommend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/miragelib/mirage/internal/metrics"
	"github.com/miragelib/mirage/internal/models"
)

// DefaultOversampleFactor sizes the retrieval pool relative to the target so
// the sampler has enough low-score tail to produce visible variety run over
// run without materially diluting quality.
const DefaultOversampleFactor = 3

// PipelineConfig holds candidate pipeline settings.
type PipelineConfig struct {
	// TargetSize is the number of items selected per run.
	TargetSize int

	// OversampleFactor multiplies TargetSize for the retrieval pool.
	OversampleFactor int
}

// Pipeline orchestrates source and sampler for one taste profile.
type Pipeline struct {
	provider DataProvider
	source   *Source
	sampler  *Sampler
	cfg      PipelineConfig
	logger   zerolog.Logger
}

// NewPipeline creates a candidate pipeline.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(provider DataProvider, sampler *Sampler, cfg PipelineConfig, logger zerolog.Logger) *Pipeline {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = 30
	}
	if cfg.OversampleFactor <= 0 {
		cfg.OversampleFactor = DefaultOversampleFactor
	}
	return &Pipeline{
		provider: provider,
		source:   NewSource(provider, logger),
		sampler:  sampler,
		cfg:      cfg,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Generate produces the ranked selection for one profile.
//
// A missing profile is a hard error. A missing taste signal is not: the
// pipeline degrades to the popularity fallback inside the source.
func (p *Pipeline) Generate(ctx context.Context, profileID string) ([]SelectedCandidate, *models.TasteProfile, error) {
	profile, err := p.provider.TasteProfile(ctx, profileID)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile %s: %w", profileID, err)
	}

	taste, err := p.tasteVector(ctx, profile)
	if err != nil {
		return nil, nil, err
	}

	consumed, err := p.provider.ConsumedItemIDs(ctx, profile.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load watch history for %s: %w", profile.OwnerID, err)
	}

	filters := Filters{
		MediaType:     profile.MediaType,
		Genres:        profile.GenreFilters,
		PolicyCeiling: profile.PolicyCeiling,
	}

	poolSize := p.cfg.TargetSize * p.cfg.OversampleFactor
	pool, err := p.source.FindCandidates(ctx, taste, filters, consumed, poolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("find candidates: %w", err)
	}
	metrics.CandidatesRetrieved.Observe(float64(len(pool)))

	selected := p.sampler.Sample(pool, p.cfg.TargetSize)

	p.logger.Debug().
		Str("profile", profileID).
		Int("pool", len(pool)).
		Int("selected", len(selected)).
		Bool("vector_based", len(taste) > 0).
		Msg("candidates generated")

	return selected, profile, nil
}

// tasteVector averages the stored embeddings of the profile's example items.
// Items lacking an embedding are skipped; zero usable vectors means the taste
// signal is absent (nil return, no error).
func (p *Pipeline) tasteVector(ctx context.Context, profile *models.TasteProfile) ([]float64, error) {
	if len(profile.ExampleItemIDs) == 0 {
		return nil, nil
	}

	embeddings, err := p.provider.ItemEmbeddings(ctx, profile.ExampleItemIDs)
	if err != nil {
		return nil, fmt.Errorf("load example embeddings: %w", err)
	}
	return averageVectors(embeddings), nil
}

// averageVectors computes the element-wise mean of the given vectors.
// Vectors whose dimension differs from the first are skipped. Returns nil
// when no usable vectors remain.
func averageVectors(vectors [][]float64) []float64 {
	var sum []float64
	used := 0
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		for i, x := range v {
			sum[i] += x
		}
		used++
	}
	if used == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(used)
	}
	return sum
}
