// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/miragelib/mirage/internal/mediaserver"
	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/progress"
	"github.com/miragelib/mirage/internal/recommend"
	"github.com/miragelib/mirage/internal/reconcile"
	"github.com/miragelib/mirage/internal/virtual"
)

// fakeStore backs both the orchestrator and the recommendation pipeline
// with an in-memory catalog.
type fakeStore struct {
	profiles map[string]*models.TasteProfile
	items    map[int64]models.ContentItem
	rated    []recommend.RatedItem
}

func (f *fakeStore) TasteProfile(_ context.Context, profileID string) (*models.TasteProfile, error) {
	p, ok := f.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, recommend.ErrProfileNotFound)
	}
	return p, nil
}

func (f *fakeStore) ListActiveProfiles(context.Context) ([]*models.TasteProfile, error) {
	var out []*models.TasteProfile
	for _, p := range f.profiles {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetContentItems(_ context.Context, ids []int64) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) ItemEmbeddings(context.Context, []int64) ([][]float64, error) {
	return nil, nil
}

func (f *fakeStore) ConsumedItemIDs(context.Context, string) (map[int64]struct{}, error) {
	return nil, nil
}

func (f *fakeStore) NearestNeighbors(context.Context, []float64, recommend.Filters, int) ([]recommend.Neighbor, error) {
	return nil, recommend.ErrIndexUnavailable
}

func (f *fakeStore) TopRated(_ context.Context, filters recommend.Filters, limit int) ([]recommend.RatedItem, error) {
	if limit > len(f.rated) {
		limit = len(f.rated)
	}
	return f.rated[:limit], nil
}

var _ Store = (*fakeStore)(nil)
var _ recommend.DataProvider = (*fakeStore)(nil)

// memRunStore captures run records for assertions.
type memRunStore struct {
	mu   sync.Mutex
	runs map[string]models.RunRecord
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[string]models.RunRecord)}
}

func (m *memRunStore) InsertRun(_ context.Context, run *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memRunStore) UpdateRun(_ context.Context, run *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memRunStore) byProfile(profileID string) (models.RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ProfileID == profileID {
			return r, true
		}
	}
	return models.RunRecord{}, false
}

// fakeProvider is an in-memory media server.
type fakeProvider struct {
	libraries []mediaserver.Library
}

func (f *fakeProvider) Ping(context.Context) error { return nil }

func (f *fakeProvider) GetLibraries(context.Context) ([]mediaserver.Library, error) {
	return f.libraries, nil
}

func (f *fakeProvider) CreateLibrary(_ context.Context, name, collectionType string, paths []string) error {
	f.libraries = append(f.libraries, mediaserver.Library{
		ID:             fmt.Sprintf("lib-%d", len(f.libraries)+1),
		Name:           name,
		CollectionType: collectionType,
		Paths:          paths,
	})
	return nil
}

func (f *fakeProvider) RefreshLibrary(context.Context, string) error { return nil }

func (f *fakeProvider) UserAccess(context.Context, string) (mediaserver.AccessPolicy, error) {
	return mediaserver.AccessPolicy{EnableAllFolders: true}, nil
}

func (f *fakeProvider) SetUserAccess(context.Context, string, mediaserver.AccessPolicy) error {
	return nil
}

func (f *fakeProvider) StreamURL(externalItemID string) string {
	return "http://server/Videos/" + externalItemID + "/stream"
}

func testItem(id int64, title, externalID string) models.ContentItem {
	return models.ContentItem{
		ID:         id,
		ExternalID: externalID,
		Title:      title,
		Year:       2020,
		MediaType:  models.MediaTypeMovie,
	}
}

func newTestOrchestrator(t *testing.T, store *fakeStore, provider *fakeProvider, mode PointerMode) (*Orchestrator, *memRunStore, string) {
	t.Helper()

	root := t.TempDir()
	sampler := recommend.NewSampler(0.05, 42)
	pipeline := recommend.NewPipeline(store, sampler, recommend.PipelineConfig{
		TargetSize:       2,
		OversampleFactor: 2,
	}, zerolog.Nop())
	planner := virtual.NewPlanner(virtual.PlannerConfig{})
	reconciler := reconcile.NewReconciler(reconcile.Config{Root: root}, nil, nil)
	runs := newMemRunStore()
	tracker := progress.NewTracker(runs, progress.NewBus(nil))

	orch := New(store, pipeline, planner, reconciler, mediaserver.NewBinder(provider), provider, tracker, mode)
	return orch, runs, root
}

func newTestStore() *fakeStore {
	rating := 8.0
	return &fakeStore{
		profiles: map[string]*models.TasteProfile{
			"p-1": {
				ID:        "p-1",
				OwnerID:   "alice",
				Name:      "Crime Picks",
				MediaType: models.MediaTypeMovie,
				Active:    true,
			},
		},
		items: map[int64]models.ContentItem{
			1: testItem(1, "First Light", "jf-1"),
			2: testItem(2, "Second Wind", "jf-2"),
			3: testItem(3, "Third Act", "jf-3"),
		},
		rated: []recommend.RatedItem{
			{ItemID: 1, ExternalID: "jf-1", Title: "First Light", Year: 2020, Rating: &rating},
			{ItemID: 2, ExternalID: "jf-2", Title: "Second Wind", Year: 2020, Rating: &rating},
			{ItemID: 3, ExternalID: "jf-3", Title: "Third Act", Year: 2020},
		},
	}
}

func TestSyncProfileMaterializesLibrary(t *testing.T) {
	store := newTestStore()
	provider := &fakeProvider{}
	orch, runs, root := newTestOrchestrator(t, store, provider, "")

	if err := orch.SyncProfile(context.Background(), "p-1"); err != nil {
		t.Fatalf("SyncProfile: %v", err)
	}

	ownerKey := store.profiles["p-1"].OwnerKey()
	dir := filepath.Join(root, ownerKey)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read library dir: %v", err)
	}
	var strm, nfo int
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".strm":
			strm++
		case ".nfo":
			nfo++
		}
	}
	if strm != 2 || nfo != 2 {
		t.Errorf("artifacts = %d strm / %d nfo, want 2/2", strm, nfo)
	}

	record, ok := runs.byProfile("p-1")
	if !ok {
		t.Fatal("no run record written")
	}
	if record.Status != models.RunStatusCompleted {
		t.Errorf("run status = %s, want completed", record.Status)
	}
	if record.CandidateCount != 2 {
		t.Errorf("candidate count = %d, want 2", record.CandidateCount)
	}
	if record.CompletedAt == nil {
		t.Error("completed run has no completion time")
	}

	if len(provider.libraries) != 1 {
		t.Fatalf("libraries = %d, want 1", len(provider.libraries))
	}
	lib := provider.libraries[0]
	if lib.Name != "Crime Picks (Mirage)" {
		t.Errorf("library name = %q", lib.Name)
	}
	if lib.CollectionType != "movies" {
		t.Errorf("collection type = %q, want movies", lib.CollectionType)
	}
	if len(lib.Paths) != 1 || lib.Paths[0] != dir {
		t.Errorf("library paths = %v, want [%s]", lib.Paths, dir)
	}
}

func TestSyncProfileStreamPointers(t *testing.T) {
	store := newTestStore()
	orch, _, root := newTestOrchestrator(t, store, &fakeProvider{}, PointerModeStream)

	if err := orch.SyncProfile(context.Background(), "p-1"); err != nil {
		t.Fatalf("SyncProfile: %v", err)
	}

	dir := filepath.Join(root, store.profiles["p-1"].OwnerKey())
	matches, err := filepath.Glob(filepath.Join(dir, "*.strm"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no pointer files found: %v", err)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), "http://server/Videos/") {
		t.Errorf("pointer content = %q, want stream URL", content)
	}
}

func TestSyncProfilePathPointers(t *testing.T) {
	store := newTestStore()
	for id, item := range store.items {
		item.FilePath = fmt.Sprintf("/media/movies/file-%d.mkv", id)
		store.items[id] = item
	}
	orch, _, root := newTestOrchestrator(t, store, &fakeProvider{}, PointerModePath)

	if err := orch.SyncProfile(context.Background(), "p-1"); err != nil {
		t.Fatalf("SyncProfile: %v", err)
	}

	dir := filepath.Join(root, store.profiles["p-1"].OwnerKey())
	matches, _ := filepath.Glob(filepath.Join(dir, "*.strm"))
	if len(matches) == 0 {
		t.Fatal("no pointer files found")
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(content), "/media/movies/") {
		t.Errorf("pointer content = %q, want file path", content)
	}
}

func TestSyncProfileNotFound(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, newTestStore(), &fakeProvider{}, "")

	err := orch.SyncProfile(context.Background(), "missing")
	if !errors.Is(err, recommend.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
}

func TestSyncAllCountsOutcomes(t *testing.T) {
	store := newTestStore()
	store.profiles["p-2"] = &models.TasteProfile{
		ID:        "p-2",
		OwnerID:   "bob",
		Name:      "Bob Picks",
		MediaType: models.MediaTypeMovie,
		Active:    true,
	}
	store.profiles["p-3"] = &models.TasteProfile{
		ID:        "p-3",
		OwnerID:   "carol",
		Name:      "Inactive",
		MediaType: models.MediaTypeMovie,
		Active:    false,
	}
	orch, _, _ := newTestOrchestrator(t, store, &fakeProvider{}, "")

	summary, err := orch.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 succeeded", summary)
	}
}

func TestSyncAllCancelledContext(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, newTestStore(), &fakeProvider{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.SyncAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSyncProfileIdempotent(t *testing.T) {
	store := newTestStore()
	orch, _, root := newTestOrchestrator(t, store, &fakeProvider{}, "")

	for i := 0; i < 2; i++ {
		if err := orch.SyncProfile(context.Background(), "p-1"); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	dir := filepath.Join(root, store.profiles["p-1"].OwnerKey())
	matches, _ := filepath.Glob(filepath.Join(dir, "*.strm"))
	if len(matches) != 2 {
		t.Errorf("pointers after reruns = %d, want 2", len(matches))
	}
}
