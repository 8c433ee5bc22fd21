// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package reconcile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/metrics"
	"github.com/miragelib/mirage/internal/virtual"
)

// Managed file extensions. Reconciliation never touches files outside this
// set, so user files dropped into a library directory survive runs.
var managedExtensions = map[string]bool{
	".strm": true,
	".nfo":  true,
	".jpg":  true,
}

const (
	defaultTextWorkers  = 20
	defaultImageWorkers = 10

	dirPerm  = 0o755
	filePerm = 0o644
)

// Cache remembers artifact fingerprints across runs so unchanged text
// artifacts skip the write and unchanged images skip the download.
type Cache interface {
	// Current reports whether the stored fingerprint for key matches.
	Current(key string, fingerprint []byte) bool
	// Remember stores the fingerprint for key.
	Remember(key string, fingerprint []byte) error
	// Forget drops the entry for key.
	Forget(key string) error
}

// NopCache is the disabled-cache implementation; every lookup misses.
type NopCache struct{}

func (NopCache) Current(string, []byte) bool   { return false }
func (NopCache) Remember(string, []byte) error { return nil }
func (NopCache) Forget(string) error           { return nil }

// ImageFetcher downloads image bytes for poster/backdrop artifacts.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Config holds reconciler settings.
type Config struct {
	// Root is the directory under which per-owner library directories live.
	Root string

	// TextWorkers bounds concurrent pointer/sidecar writes.
	TextWorkers int
	// ImageWorkers bounds concurrent image downloads.
	ImageWorkers int
}

// Result summarizes one reconciliation pass.
type Result struct {
	Created int
	Deleted int
	Skipped int
	Errors  int
}

// Reconciler converges library directories to planned artifact sets.
type Reconciler struct {
	cfg    Config
	images ImageFetcher
	cache  Cache

	// refreshImages controls whether a present image with a cache miss is
	// re-downloaded. Without a real cache a miss carries no signal, so
	// present images are left alone.
	refreshImages bool
}

// NewReconciler creates a reconciler. A nil images fetcher disables image
// materialization; a nil cache disables skip-unchanged.
func NewReconciler(cfg Config, images ImageFetcher, cache Cache) *Reconciler {
	if cfg.TextWorkers <= 0 {
		cfg.TextWorkers = defaultTextWorkers
	}
	if cfg.ImageWorkers <= 0 {
		cfg.ImageWorkers = defaultImageWorkers
	}
	refresh := cache != nil
	if cache == nil {
		cache = NopCache{}
	}
	return &Reconciler{cfg: cfg, images: images, cache: cache, refreshImages: refresh}
}

// Dir returns the library directory for one owner key.
func (r *Reconciler) Dir(ownerKey string) string {
	return filepath.Join(r.cfg.Root, ownerKey)
}

// Reconcile converges the owner's directory to the planned entry set.
// Re-running with an unchanged plan is a no-op apart from cache lookups.
func (r *Reconciler) Reconcile(ctx context.Context, ownerKey string, entries []virtual.Entry) (Result, error) {
	dir := r.Dir(ownerKey)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return Result{}, fmt.Errorf("create library dir %s: %w", dir, err)
	}

	existing, err := listManaged(dir)
	if err != nil {
		return Result{}, fmt.Errorf("list library dir %s: %w", dir, err)
	}

	expected := make(map[string]virtual.Entry, len(entries))
	for _, e := range entries {
		expected[e.Name] = e
	}

	var created, skipped, deleted, errCount atomic.Int64

	// Text artifacts and images run in separate bounded groups so a slow
	// image host cannot starve pointer/sidecar writes.
	text, textCtx := errgroup.WithContext(ctx)
	text.SetLimit(r.cfg.TextWorkers)
	img, imgCtx := errgroup.WithContext(ctx)
	img.SetLimit(r.cfg.ImageWorkers)

	for _, e := range entries {
		entry := e
		onDisk := existing[entry.Name]
		if entry.Kind.Image() {
			if r.images == nil {
				continue
			}
			img.Go(func() error {
				switch err := r.materializeImage(imgCtx, ownerKey, dir, entry, onDisk); {
				case err == nil:
					created.Add(1)
				case err == errUpToDate:
					skipped.Add(1)
				default:
					errCount.Add(1)
					metrics.ArtifactErrors.WithLabelValues("download").Inc()
					logging.Warn().Err(err).Str("owner_key", ownerKey).Str("artifact", entry.Name).Msg("Image materialization failed")
				}
				return nil
			})
			continue
		}
		text.Go(func() error {
			switch err := r.writeText(textCtx, ownerKey, dir, entry, onDisk); {
			case err == nil:
				created.Add(1)
				metrics.ArtifactsCreated.WithLabelValues(string(entry.Kind)).Inc()
			case err == errUpToDate:
				skipped.Add(1)
			default:
				errCount.Add(1)
				metrics.ArtifactErrors.WithLabelValues("write").Inc()
				logging.Warn().Err(err).Str("owner_key", ownerKey).Str("artifact", entry.Name).Msg("Artifact write failed")
			}
			return nil
		})
	}

	// Worker errors are absorbed per artifact; only context cancellation
	// propagates.
	_ = text.Wait()
	_ = img.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Delete managed files that are no longer planned.
	for name := range existing {
		if _, ok := expected[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			errCount.Add(1)
			metrics.ArtifactErrors.WithLabelValues("delete").Inc()
			logging.Warn().Err(err).Str("owner_key", ownerKey).Str("artifact", name).Msg("Artifact delete failed")
			continue
		}
		_ = r.cache.Forget(cacheKey(ownerKey, name))
		deleted.Add(1)
		metrics.ArtifactsDeleted.Inc()
	}
	pruneEmptyDirs(dir)

	res := Result{
		Created: int(created.Load()),
		Deleted: int(deleted.Load()),
		Skipped: int(skipped.Load()),
		Errors:  int(errCount.Load()),
	}
	logging.Debug().
		Str("owner_key", ownerKey).
		Int("created", res.Created).
		Int("deleted", res.Deleted).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("Library reconciled")
	return res, nil
}

// errUpToDate signals that an artifact needed no work.
var errUpToDate = errors.New("artifact up to date")

func (r *Reconciler) writeText(ctx context.Context, ownerKey, dir string, entry virtual.Entry, onDisk bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := cacheKey(ownerKey, entry.Name)
	sum := sha256.Sum256(entry.Content)
	if onDisk && r.cache.Current(key, sum[:]) {
		metrics.ArtifactCacheHits.Inc()
		return errUpToDate
	}

	target := filepath.Join(dir, filepath.FromSlash(entry.Name))
	if onDisk {
		// Cache miss with a file present: compare bytes before rewriting so
		// a cold cache does not churn mtimes.
		current, err := os.ReadFile(target)
		if err == nil && bytes.Equal(current, entry.Content) {
			_ = r.cache.Remember(key, sum[:])
			return errUpToDate
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}
	if err := os.WriteFile(target, entry.Content, filePerm); err != nil {
		return err
	}
	_ = r.cache.Remember(key, sum[:])
	return nil
}

func (r *Reconciler) materializeImage(ctx context.Context, ownerKey, dir string, entry virtual.Entry, onDisk bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := cacheKey(ownerKey, entry.Name)
	// The image fingerprint is its source URL: a present file downloaded
	// from the same URL never re-downloads.
	if onDisk {
		if r.cache.Current(key, []byte(entry.SourceURL)) {
			metrics.ArtifactCacheHits.Inc()
			return errUpToDate
		}
		if !r.refreshImages {
			return errUpToDate
		}
	}

	data, err := r.images.Fetch(ctx, entry.SourceURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", entry.SourceURL, err)
	}

	target := filepath.Join(dir, filepath.FromSlash(entry.Name))
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, filePerm); err != nil {
		return err
	}
	_ = r.cache.Remember(key, []byte(entry.SourceURL))
	metrics.ArtifactsCreated.WithLabelValues(string(entry.Kind)).Inc()
	return nil
}

func cacheKey(ownerKey, name string) string {
	return ownerKey + "/" + name
}

// listManaged returns the slash-separated relative paths of all managed
// files under dir.
func listManaged(dir string) (map[string]bool, error) {
	found := make(map[string]bool)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !managedExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		found[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// pruneEmptyDirs removes directories left empty after deletes, deepest
// first. Best effort; the root itself is kept.
func pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != root {
			dirs = append(dirs, p)
		}
		return nil
	})
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		// Remove fails on non-empty directories, which is exactly the
		// behavior wanted here.
		_ = os.Remove(d)
	}
}
