// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/miragelib/mirage/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testMovie(id int64, title string, year int) models.ContentItem {
	rating := 8.7
	return models.ContentItem{
		ID:              id,
		ExternalID:      "jf-" + title,
		Title:           title,
		Year:            year,
		MediaType:       models.MediaTypeMovie,
		Overview:        "A test movie.",
		Genres:          []string{"Drama"},
		Directors:       []string{"Test Director"},
		Actors:          []string{"Actor One", "Actor Two"},
		CommunityRating: &rating,
		PosterURL:       "https://img.example/poster.jpg",
		BackdropURL:     "https://img.example/backdrop.jpg",
	}
}

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

func findEntry(t *testing.T, entries []Entry, name string) Entry {
	t.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("entry %q not planned; have %v", name, entryNames(entries))
	return Entry{}
}

func TestPlanMovieArtifactSet(t *testing.T) {
	p := NewPlanner(PlannerConfig{Images: true, Now: fixedClock(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: testMovie(1, "Heat", 1995), Rank: 1, PointerContent: "/media/movies/Heat (1995)/Heat.mkv"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	want := []string{
		"Heat (1995) [jf-Heat]-fanart.jpg",
		"Heat (1995) [jf-Heat]-poster.jpg",
		"Heat (1995) [jf-Heat].nfo",
		"Heat (1995) [jf-Heat].strm",
	}
	got := entryNames(entries)
	if len(got) != len(want) {
		t.Fatalf("planned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}

	strm := findEntry(t, entries, "Heat (1995) [jf-Heat].strm")
	if strm.Kind != KindPointer {
		t.Errorf("strm kind = %q, want %q", strm.Kind, KindPointer)
	}
	if string(strm.Content) != "/media/movies/Heat (1995)/Heat.mkv\n" {
		t.Errorf("strm content = %q", strm.Content)
	}

	poster := findEntry(t, entries, "Heat (1995) [jf-Heat]-poster.jpg")
	if poster.SourceURL != "https://img.example/poster.jpg" {
		t.Errorf("poster source = %q", poster.SourceURL)
	}
	if !poster.Kind.Image() {
		t.Errorf("poster kind %q not an image kind", poster.Kind)
	}
}

func TestPlanMovieSidecarContent(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := NewPlanner(PlannerConfig{Now: fixedClock(now)})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: testMovie(7, "Heat", 1995), Rank: 3, PointerContent: "/media/heat.mkv"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	nfo := string(findEntry(t, entries, "Heat (1995) [jf-Heat].nfo").Content)

	wantFragments := []string{
		`<?xml version="1.0" encoding="utf-8" standalone="yes"?>`,
		"<movie>",
		"<title>Heat</title>",
		"<year>1995</year>",
		"<lockdata>true</lockdata>",
		`<uniqueid type="imdb" default="true">` + SyntheticIdentity("alice-favorites", 7, IdentityIMDb),
		`<uniqueid type="tmdb">` + SyntheticIdentity("alice-favorites", 7, IdentityTMDb),
		// rank 3 at one-minute steps
		"<dateadded>2026-08-30 11:57:00</dateadded>",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(nfo, frag) {
			t.Errorf("sidecar missing %q:\n%s", frag, nfo)
		}
	}
}

func TestPlanSeriesArtifactSet(t *testing.T) {
	item := testMovie(9, "The Wire", 2002)
	item.MediaType = models.MediaTypeSeries
	p := NewPlanner(PlannerConfig{Images: true, Now: fixedClock(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: item, Rank: 1, PointerContent: "/media/tv/The Wire"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	base := "The Wire (2002) [jf-The Wire]"
	want := []string{
		base + "/Season 01/" + base + " S01E01.nfo",
		base + "/Season 01/" + base + " S01E01.strm",
		base + "/fanart.jpg",
		base + "/poster.jpg",
		base + "/tvshow.nfo",
	}
	got := entryNames(entries)
	if len(got) != len(want) {
		t.Fatalf("planned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}

	strm := findEntry(t, entries, base+"/Season 01/"+base+" S01E01.strm")
	if strm.Kind != KindPlaceholder {
		t.Errorf("placeholder strm kind = %q", strm.Kind)
	}
	if string(strm.Content) != "mirage://placeholder\n" {
		t.Errorf("placeholder content = %q", strm.Content)
	}

	episode := string(findEntry(t, entries, base+"/Season 01/"+base+" S01E01.nfo").Content)
	for _, frag := range []string{"<watched>true</watched>", "<playcount>1</playcount>", "<season>1</season>", "<episode>1</episode>"} {
		if !strings.Contains(episode, frag) {
			t.Errorf("placeholder sidecar missing %q:\n%s", frag, episode)
		}
	}
}

func TestPlanDateAddedFollowsRank(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p := NewPlanner(PlannerConfig{Now: fixedClock(now)})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: testMovie(1, "First", 2001), Rank: 1, PointerContent: "a"},
		{Item: testMovie(2, "Second", 2002), Rank: 2, PointerContent: "b"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	first := string(findEntry(t, entries, "First (2001) [jf-First].nfo").Content)
	second := string(findEntry(t, entries, "Second (2002) [jf-Second].nfo").Content)

	// Rank 1 carries the most recent timestamp so "recently added" order
	// matches rank order.
	if !strings.Contains(first, "<dateadded>2026-08-30 11:59:00</dateadded>") {
		t.Errorf("rank 1 dateadded wrong:\n%s", first)
	}
	if !strings.Contains(second, "<dateadded>2026-08-30 11:58:00</dateadded>") {
		t.Errorf("rank 2 dateadded wrong:\n%s", second)
	}
}

func TestPlanImagesDisabled(t *testing.T) {
	p := NewPlanner(PlannerConfig{Images: false, Now: fixedClock(time.Now())})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: testMovie(1, "Heat", 1995), Rank: 1, PointerContent: "x"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	for _, e := range entries {
		if e.Kind.Image() {
			t.Errorf("image entry %q planned with images disabled", e.Name)
		}
	}
}

func TestPlanImagesSkippedWithoutURLs(t *testing.T) {
	item := testMovie(1, "Heat", 1995)
	item.PosterURL = ""
	item.BackdropURL = ""
	p := NewPlanner(PlannerConfig{Images: true, Now: fixedClock(time.Now())})

	entries, err := p.Plan("alice-favorites", []PlanItem{
		{Item: item, Rank: 1, PointerContent: "x"},
	})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("planned %v, want pointer and sidecar only", entryNames(entries))
	}
}
