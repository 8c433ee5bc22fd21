// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

import (
	"fmt"
	"path"
	"time"

	"github.com/miragelib/mirage/internal/models"
)

// DefaultRankStep is the timestamp offset between adjacent ranks. One unit
// per rank is enough for a stable "recently added" order while keeping all
// synthetic timestamps in the recent past.
const DefaultRankStep = time.Minute

// placeholderPointer is the pointer content of ordering placeholders. The
// scheme resolves nowhere; the entry exists only to carry a timestamp.
const placeholderPointer = "mirage://placeholder\n"

// PlannerConfig holds artifact planning settings.
type PlannerConfig struct {
	// MaxBaseName caps derived artifact base names.
	MaxBaseName int

	// Images enables poster/backdrop entries.
	Images bool

	// RankStep is the timestamp offset per rank. Default: one minute.
	RankStep time.Duration

	// Now is the clock used for synthetic timestamps. Defaults to time.Now;
	// injectable for tests.
	Now func() time.Time
}

// PlanItem pairs one ranked selection with its catalog metadata and the
// policy-selected pointer content (original file path or streaming URL).
type PlanItem struct {
	Item           models.ContentItem
	Rank           int
	PointerContent string
}

// Planner maps a ranked selection to the expected artifact set for one
// owner's library.
type Planner struct {
	cfg PlannerConfig
}

// NewPlanner creates an artifact planner.
func NewPlanner(cfg PlannerConfig) *Planner {
	if cfg.MaxBaseName <= 0 {
		cfg.MaxBaseName = DefaultMaxBaseName
	}
	if cfg.RankStep <= 0 {
		cfg.RankStep = DefaultRankStep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{cfg: cfg}
}

// Plan computes the complete expected artifact set for the given selection.
// The result is a pure function of the inputs and the clock; synthetic
// identities inside sidecars depend only on (ownerKey, itemID).
func (p *Planner) Plan(ownerKey string, items []PlanItem) ([]Entry, error) {
	// One clock reading for the whole plan keeps rank order exact.
	now := p.cfg.Now()

	var entries []Entry
	for i := range items {
		dateAdded := now.Add(-time.Duration(items[i].Rank) * p.cfg.RankStep)

		var (
			itemEntries []Entry
			err         error
		)
		switch items[i].Item.MediaType {
		case models.MediaTypeSeries:
			itemEntries, err = p.planSeries(ownerKey, &items[i], dateAdded)
		default:
			itemEntries, err = p.planMovie(ownerKey, &items[i], dateAdded)
		}
		if err != nil {
			return nil, fmt.Errorf("plan %q: %w", items[i].Item.Title, err)
		}
		entries = append(entries, itemEntries...)
	}
	return entries, nil
}

// planMovie emits the flat artifact layout for a single-file item:
//
//	Title (Year) [id].strm
//	Title (Year) [id].nfo
//	Title (Year) [id]-poster.jpg
//	Title (Year) [id]-fanart.jpg
func (p *Planner) planMovie(ownerKey string, item *PlanItem, dateAdded time.Time) ([]Entry, error) {
	base := BaseName(item.Item.Title, item.Item.Year, item.Item.ExternalID, p.cfg.MaxBaseName)

	sidecar, err := movieSidecar(item.Item, ownerKey, dateAdded)
	if err != nil {
		return nil, err
	}

	entries := []Entry{
		{Name: base + ".strm", Kind: KindPointer, OwnerKey: ownerKey, Content: []byte(item.PointerContent + "\n")},
		{Name: base + ".nfo", Kind: KindSidecar, OwnerKey: ownerKey, Content: sidecar},
	}
	entries = append(entries, p.imageEntries(ownerKey, base+"-poster.jpg", base+"-fanart.jpg", &item.Item)...)
	return entries, nil
}

// planSeries emits the directory layout for a container item:
//
//	Title (Year) [id]/tvshow.nfo
//	Title (Year) [id]/poster.jpg
//	Title (Year) [id]/fanart.jpg
//	Title (Year) [id]/Season 01/Title (Year) [id] S01E01.strm
//	Title (Year) [id]/Season 01/Title (Year) [id] S01E01.nfo
//
// The S01E01 pair is the ordering placeholder: the external server sorts a
// series by its episodes' timestamps, so the synthetic "date added" rides on
// an invisible, already-watched episode.
func (p *Planner) planSeries(ownerKey string, item *PlanItem, dateAdded time.Time) ([]Entry, error) {
	base := BaseName(item.Item.Title, item.Item.Year, item.Item.ExternalID, p.cfg.MaxBaseName)

	sidecar, err := seriesSidecar(item.Item, ownerKey, dateAdded)
	if err != nil {
		return nil, err
	}
	episode, err := placeholderSidecar(item.Item.Title, dateAdded)
	if err != nil {
		return nil, err
	}

	episodeBase := path.Join(base, "Season 01", base+" S01E01")
	entries := []Entry{
		{Name: path.Join(base, "tvshow.nfo"), Kind: KindSidecar, OwnerKey: ownerKey, Content: sidecar},
		{Name: episodeBase + ".strm", Kind: KindPlaceholder, OwnerKey: ownerKey, Content: []byte(placeholderPointer)},
		{Name: episodeBase + ".nfo", Kind: KindPlaceholder, OwnerKey: ownerKey, Content: episode},
	}
	entries = append(entries, p.imageEntries(ownerKey, path.Join(base, "poster.jpg"), path.Join(base, "fanart.jpg"), &item.Item)...)
	return entries, nil
}

// imageEntries emits poster/backdrop entries when image materialization is
// enabled and the item has source URLs.
func (p *Planner) imageEntries(ownerKey, posterName, backdropName string, item *models.ContentItem) []Entry {
	if !p.cfg.Images {
		return nil
	}
	var entries []Entry
	if item.PosterURL != "" {
		entries = append(entries, Entry{Name: posterName, Kind: KindPoster, OwnerKey: ownerKey, SourceURL: item.PosterURL})
	}
	if item.BackdropURL != "" {
		entries = append(entries, Entry{Name: backdropName, Kind: KindBackdrop, OwnerKey: ownerKey, SourceURL: item.BackdropURL})
	}
	return entries
}
