// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package recommend

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/miragelib/mirage/internal/models"
)

func TestGenerateProfileNotFound(t *testing.T) {
	fp := &fakeProvider{profiles: map[string]*models.TasteProfile{}}
	p := NewPipeline(fp, NewSampler(DefaultWeightFloor, 1), PipelineConfig{TargetSize: 5}, zerolog.Nop())

	_, _, err := p.Generate(context.Background(), "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestGenerateVectorPath(t *testing.T) {
	fp := &fakeProvider{
		profiles: map[string]*models.TasteProfile{
			"p1": {
				ID:             "p1",
				OwnerID:        "owner1",
				MediaType:      models.MediaTypeMovie,
				ExampleItemIDs: []int64{1, 2, 3},
			},
		},
		embeddings: map[int64][]float64{
			1: {1, 0},
			2: {0, 1},
			// item 3 has no stored embedding and is skipped
		},
		consumed: map[string]map[int64]struct{}{
			"owner1": {50: {}},
		},
		neighbors: []Neighbor{
			{ItemID: 40, Distance: 0.1},
			{ItemID: 50, Distance: 0.2}, // consumed, must be excluded
			{ItemID: 60, Distance: 0.4},
		},
	}
	p := NewPipeline(fp, NewSampler(DefaultWeightFloor, 1), PipelineConfig{TargetSize: 5, OversampleFactor: 3}, zerolog.Nop())

	got, profile, err := p.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if profile == nil || profile.ID != "p1" {
		t.Fatalf("profile not returned: %+v", profile)
	}

	// Taste = mean of the two usable embeddings.
	want := []float64{0.5, 0.5}
	for i, w := range want {
		if math.Abs(fp.gotVector[i]-w) > 1e-9 {
			t.Errorf("taste vector[%d] = %f, want %f", i, fp.gotVector[i], w)
		}
	}

	// Over-fetch: targetSize*factor + |consumed| = 15 + 1.
	if fp.gotLimit != 16 {
		t.Errorf("query limit = %d, want 16", fp.gotLimit)
	}

	for _, sc := range got {
		if sc.ItemID == 50 {
			t.Error("consumed item 50 present in selection")
		}
	}
}

func TestGenerateNoUsableEmbeddingsFallsBack(t *testing.T) {
	fp := &fakeProvider{
		profiles: map[string]*models.TasteProfile{
			"p1": {
				ID:             "p1",
				OwnerID:        "owner1",
				MediaType:      models.MediaTypeMovie,
				ExampleItemIDs: []int64{7}, // no embedding stored
			},
		},
		embeddings: map[int64][]float64{},
		rated: []RatedItem{
			{ItemID: 1, Rating: ptr(9.0)},
			{ItemID: 2, Rating: ptr(8.0)},
			{ItemID: 3, Rating: ptr(7.0)},
		},
	}
	p := NewPipeline(fp, NewSampler(DefaultWeightFloor, 1), PipelineConfig{TargetSize: 3}, zerolog.Nop())

	got, _, err := p.Generate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	// Pool (3) <= target (3): the whole pool comes back ordered strictly by
	// descending popularity proxy.
	wantOrder := []int64{1, 2, 3}
	for i, want := range wantOrder {
		if got[i].ItemID != want {
			t.Errorf("selected[%d].ItemID = %d, want %d", i, got[i].ItemID, want)
		}
		if got[i].Rank != i+1 {
			t.Errorf("selected[%d].Rank = %d, want %d", i, got[i].Rank, i+1)
		}
	}
}

func TestAverageVectors(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float64
		want    []float64
	}{
		{"nil input", nil, nil},
		{"empty vectors skipped", [][]float64{{}, {}}, nil},
		{"single vector", [][]float64{{1, 2, 3}}, []float64{1, 2, 3}},
		{"two vectors", [][]float64{{1, 0}, {0, 1}}, []float64{0.5, 0.5}},
		{"dimension mismatch skipped", [][]float64{{1, 1}, {1, 1, 1}, {3, 3}}, []float64{2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := averageVectors(tt.vectors)
			if len(got) != len(tt.want) {
				t.Fatalf("averageVectors() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("averageVectors()[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}
