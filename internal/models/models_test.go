// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package models

import "testing"

func TestOwnerKey(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		id      string
		want    string
	}{
		{"plain ids", "user1", "abc", "user1-abc"},
		{"uppercase folded", "User1", "ABC", "user1-abc"},
		{"unsafe characters replaced", "u@s/er", "p.1", "u-s-er-p-1"},
		{"leading and trailing stripped", "!user!", "!p!", "user--p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &TasteProfile{ID: tt.id, OwnerID: tt.ownerID}
			if got := p.OwnerKey(); got != tt.want {
				t.Errorf("OwnerKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOwnerKeyStable(t *testing.T) {
	p := &TasteProfile{ID: "profile-1", OwnerID: "owner-9", Name: "Sci-Fi"}
	first := p.OwnerKey()

	// Renaming the profile must not move its library directory.
	p.Name = "Space Operas"
	if got := p.OwnerKey(); got != first {
		t.Errorf("OwnerKey() changed after rename: %q != %q", got, first)
	}
}

func TestLibraryName(t *testing.T) {
	tests := []struct {
		name    string
		profile TasteProfile
		want    string
	}{
		{"named profile", TasteProfile{Name: "Cozy Mysteries"}, "Cozy Mysteries (Mirage)"},
		{"empty name falls back", TasteProfile{Name: "  "}, "Recommendations (Mirage)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.LibraryName(); got != tt.want {
				t.Errorf("LibraryName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunStatusTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusPending, false},
		{RunStatusRunning, false},
		{RunStatusCompleted, true},
		{RunStatusFailed, true},
		{RunStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMediaTypeValid(t *testing.T) {
	if !MediaTypeMovie.Valid() || !MediaTypeSeries.Valid() {
		t.Error("known media types reported invalid")
	}
	if MediaType("music").Valid() {
		t.Error("unknown media type reported valid")
	}
}
