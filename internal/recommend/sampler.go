// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package recommend

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// DefaultWeightFloor prevents zero-weight starvation for low-scoring items.
const DefaultWeightFloor = 0.1

// Sampler selects a diversified subset of a scored candidate pool via
// weighted sampling without replacement. Safe for concurrent use.
//
// weight(item) = max(floor, score)^2: squaring biases selection toward high
// scores while the floor keeps every item reachable, so repeated generations
// vary without materially diluting quality.
type Sampler struct {
	weightFloor float64

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewSampler creates a sampler. seed = 0 seeds from the current time;
// a fixed seed makes output reproducible.
func NewSampler(weightFloor float64, seed int64) *Sampler {
	if weightFloor <= 0 {
		weightFloor = DefaultWeightFloor
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		weightFloor: weightFloor,
		rng:         rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for recommendation sampling
	}
}

// Sample selects min(targetSize, len(pool)) candidates, then re-orders the
// selection by score descending and assigns rank = index + 1. The chosen set
// is randomized per call; the returned order is always quality-monotonic.
//
// Pure apart from the RNG: no I/O, no failure modes. targetSize <= 0 returns
// an empty selection.
func (s *Sampler) Sample(pool []Candidate, targetSize int) []SelectedCandidate {
	if targetSize <= 0 || len(pool) == 0 {
		return nil
	}

	var chosen []Candidate
	if len(pool) <= targetSize {
		chosen = append([]Candidate(nil), pool...)
	} else {
		chosen = s.drawWithoutReplacement(pool, targetSize)
	}

	// Stable sort keeps input order for score ties, making the final ranking
	// deterministic for a fixed selection.
	sort.SliceStable(chosen, func(i, j int) bool {
		return chosen[i].Score > chosen[j].Score
	})

	selected := make([]SelectedCandidate, len(chosen))
	for i, c := range chosen {
		selected[i] = SelectedCandidate{Candidate: c, Rank: i + 1}
	}
	return selected
}

// drawWithoutReplacement repeatedly draws a uniform value in [0, totalWeight)
// and walks the remaining pool accumulating weight until the draw is
// exceeded. The drawn item is removed and the total recomputed, since removal
// changes it.
func (s *Sampler) drawWithoutReplacement(pool []Candidate, targetSize int) []Candidate {
	remaining := append([]Candidate(nil), pool...)
	chosen := make([]Candidate, 0, targetSize)

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	for len(chosen) < targetSize && len(remaining) > 0 {
		total := 0.0
		for i := range remaining {
			total += s.weight(remaining[i].Score)
		}

		draw := s.rng.Float64() * total
		acc := 0.0
		picked := len(remaining) - 1 // guard against float accumulation error
		for i := range remaining {
			acc += s.weight(remaining[i].Score)
			if draw < acc {
				picked = i
				break
			}
		}

		chosen = append(chosen, remaining[picked])
		remaining = append(remaining[:picked], remaining[picked+1:]...)
	}

	return chosen
}

// weight computes the sampling weight for a score.
func (s *Sampler) weight(score float64) float64 {
	w := score
	if w < s.weightFloor {
		w = s.weightFloor
	}
	return w * w
}
