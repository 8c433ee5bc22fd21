// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/miragelib/mirage/internal/models"
)

// nfoHeader matches the declaration media servers emit for their own NFO
// files.
const nfoHeader = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n"

// dateAddedFormat is the NFO timestamp layout for <dateadded>.
const dateAddedFormat = "2006-01-02 15:04:05"

// uniqueID is one provider-identity field of a sidecar. All values written
// by Mirage are synthetic (see SyntheticIdentity).
type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// actor is one cast entry of a sidecar.
type actor struct {
	Name string `xml:"name"`
}

// movieNFO is the sidecar document for a movie.
//
// LockData marks all identity/metadata fields non-overwritable, so the
// external server's own metadata refresh cannot replace the synthetic
// identities with real catalog ids.
type movieNFO struct {
	XMLName   xml.Name   `xml:"movie"`
	Title     string     `xml:"title"`
	Year      int        `xml:"year,omitempty"`
	Plot      string     `xml:"plot,omitempty"`
	Rating    *float64   `xml:"rating,omitempty"`
	Genres    []string   `xml:"genre,omitempty"`
	Directors []string   `xml:"director,omitempty"`
	Actors    []actor    `xml:"actor,omitempty"`
	UniqueIDs []uniqueID `xml:"uniqueid"`
	DateAdded string     `xml:"dateadded"`
	LockData  bool       `xml:"lockdata"`
}

// tvshowNFO is the sidecar document for a series.
type tvshowNFO struct {
	XMLName   xml.Name   `xml:"tvshow"`
	Title     string     `xml:"title"`
	Year      int        `xml:"year,omitempty"`
	Plot      string     `xml:"plot,omitempty"`
	Rating    *float64   `xml:"rating,omitempty"`
	Genres    []string   `xml:"genre,omitempty"`
	Actors    []actor    `xml:"actor,omitempty"`
	UniqueIDs []uniqueID `xml:"uniqueid"`
	DateAdded string     `xml:"dateadded"`
	LockData  bool       `xml:"lockdata"`
}

// episodeNFO is the sidecar document for the invisible ordering placeholder
// episode of a series. Watched and PlayCount keep it out of unwatched and
// continue-watching views.
type episodeNFO struct {
	XMLName   xml.Name `xml:"episodedetails"`
	Title     string   `xml:"title"`
	Season    int      `xml:"season"`
	Episode   int      `xml:"episode"`
	Plot      string   `xml:"plot"`
	PlayCount int      `xml:"playcount"`
	Watched   bool     `xml:"watched"`
	DateAdded string   `xml:"dateadded"`
	LockData  bool     `xml:"lockdata"`
}

// placeholderNote is the human-readable plot of ordering placeholders.
const placeholderNote = "Ordering placeholder generated by Mirage. Not real content; safe to ignore."

// renderNFO marshals an NFO document with the standard declaration.
func renderNFO(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal nfo: %w", err)
	}
	return append([]byte(nfoHeader), append(body, '\n')...), nil
}

// identities returns the synthetic uniqueid set for one item. The first
// namespace is flagged default.
func identities(ownerKey string, itemID int64) []uniqueID {
	kinds := []IdentityKind{IdentityIMDb, IdentityTMDb, IdentityTVDb}
	ids := make([]uniqueID, len(kinds))
	for i, kind := range kinds {
		ids[i] = uniqueID{
			Type:    string(kind),
			Default: i == 0,
			Value:   SyntheticIdentity(ownerKey, itemID, kind),
		}
	}
	return ids
}

// movieSidecar renders the sidecar for one movie.
//
//nolint:gocritic // hugeParam: ContentItem passed by value keeps the planner free of aliasing
func movieSidecar(item models.ContentItem, ownerKey string, dateAdded time.Time) ([]byte, error) {
	return renderNFO(movieNFO{
		Title:     item.Title,
		Year:      item.Year,
		Plot:      item.Overview,
		Rating:    item.CommunityRating,
		Genres:    item.Genres,
		Directors: item.Directors,
		Actors:    toActors(item.Actors),
		UniqueIDs: identities(ownerKey, item.ID),
		DateAdded: dateAdded.Format(dateAddedFormat),
		LockData:  true,
	})
}

// seriesSidecar renders the sidecar for one series.
//
//nolint:gocritic // hugeParam: ContentItem passed by value keeps the planner free of aliasing
func seriesSidecar(item models.ContentItem, ownerKey string, dateAdded time.Time) ([]byte, error) {
	return renderNFO(tvshowNFO{
		Title:     item.Title,
		Year:      item.Year,
		Plot:      item.Overview,
		Rating:    item.CommunityRating,
		Genres:    item.Genres,
		Actors:    toActors(item.Actors),
		UniqueIDs: identities(ownerKey, item.ID),
		DateAdded: dateAdded.Format(dateAddedFormat),
		LockData:  true,
	})
}

// placeholderSidecar renders the invisible episode carrying the series'
// synthetic timestamp.
func placeholderSidecar(seriesTitle string, dateAdded time.Time) ([]byte, error) {
	return renderNFO(episodeNFO{
		Title:     seriesTitle + " (placeholder)",
		Season:    1,
		Episode:   1,
		Plot:      placeholderNote,
		PlayCount: 1,
		Watched:   true,
		DateAdded: dateAdded.Format(dateAddedFormat),
		LockData:  true,
	})
}

func toActors(names []string) []actor {
	if len(names) == 0 {
		return nil
	}
	actors := make([]actor, len(names))
	for i, n := range names {
		actors[i] = actor{Name: n}
	}
	return actors
}
