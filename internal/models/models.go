// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package models provides data models for the application.
package models

import (
	"regexp"
	"strings"
	"time"
)

// MediaType identifies the kind of content a profile materializes.
type MediaType string

const (
	// MediaTypeMovie is a single-file feature.
	MediaTypeMovie MediaType = "movie"
	// MediaTypeSeries is a container type whose external "date added" sort
	// follows episode timestamps rather than the series' own.
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// ContentItem is one row of the shared catalog. Embedding is nil when no
// vector has been computed for the item.
type ContentItem struct {
	ID              int64     `json:"id" db:"id"`
	ExternalID      string    `json:"external_id" db:"external_id"` // media server item id
	Title           string    `json:"title" db:"title"`
	Year            int       `json:"year" db:"year"`
	MediaType       MediaType `json:"media_type" db:"media_type"`
	Overview        string    `json:"overview" db:"overview"`
	Genres          []string  `json:"genres" db:"genres"`
	Directors       []string  `json:"directors" db:"directors"`
	Actors          []string  `json:"actors" db:"actors"`
	FilePath        string    `json:"file_path" db:"file_path"`
	PosterURL       string    `json:"poster_url" db:"poster_url"`
	BackdropURL     string    `json:"backdrop_url" db:"backdrop_url"`
	CommunityRating *float64  `json:"community_rating,omitempty" db:"community_rating"` // 0-10, nil when unrated
	PolicyRating    *int      `json:"policy_rating,omitempty" db:"policy_rating"`       // ordinal content rating, nil when unrated
	Embedding       []float64 `json:"-" db:"embedding"`
}

// TasteProfile is a saved taste definition owned by one user. Embeddings are
// derived from ExampleItemIDs at pipeline time and never stored here.
type TasteProfile struct {
	ID              string    `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"` // media server user id
	Name            string    `json:"name" db:"name"`
	MediaType       MediaType `json:"media_type" db:"media_type"`
	GenreFilters    []string  `json:"genre_filters" db:"genre_filters"`
	TextPreferences string    `json:"text_preferences" db:"text_preferences"`
	ExampleItemIDs  []int64   `json:"example_item_ids" db:"example_item_ids"`
	PolicyCeiling   *int      `json:"policy_ceiling,omitempty" db:"policy_ceiling"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

var ownerKeyInvalidRe = regexp.MustCompile(`[^a-z0-9-]+`)

// OwnerKey returns the stable filesystem- and identity-safe key for this
// profile's virtual library. It names the on-disk directory and seeds the
// synthetic identity hash, so it must never change for an existing profile.
func (p *TasteProfile) OwnerKey() string {
	raw := strings.ToLower(p.OwnerID + "-" + p.ID)
	key := ownerKeyInvalidRe.ReplaceAllString(raw, "-")
	return strings.Trim(key, "-")
}

// LibraryName returns the display name of the profile's virtual library in
// the external media server.
func (p *TasteProfile) LibraryName() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Recommendations"
	}
	return name + " (Mirage)"
}

// RunStatus tracks the lifecycle of one generation run.
type RunStatus string

const (
	// RunStatusPending is the initial state before work starts.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning means the pipeline is executing.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted is terminal success.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed is terminal failure.
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled means the run was cooperatively cancelled.
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunRecord is the append-only history entry for one target's generation run.
// Immutable once a terminal status is written.
type RunRecord struct {
	ID               string     `json:"id" db:"id"`
	ProfileID        string     `json:"profile_id" db:"profile_id"`
	OwnerID          string     `json:"owner_id" db:"owner_id"`
	MediaType        MediaType  `json:"media_type" db:"media_type"`
	Status           RunStatus  `json:"status" db:"status"`
	Step             string     `json:"step" db:"step"`
	CandidateCount   int        `json:"candidate_count" db:"candidate_count"`
	ArtifactsCreated int        `json:"artifacts_created" db:"artifacts_created"`
	ArtifactsDeleted int        `json:"artifacts_deleted" db:"artifacts_deleted"`
	Error            string     `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
