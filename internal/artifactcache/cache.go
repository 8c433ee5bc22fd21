// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package artifactcache persists artifact fingerprints in BadgerDB so
// reconciliation can skip unchanged writes and image re-downloads across
// process restarts. Losing the cache is harmless; the next run rebuilds it
// while rewriting at most what it would have skipped.
package artifactcache

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key prefix for artifact fingerprints.
const fingerprintKeyPrefix = "artifact:"

// Store is a BadgerDB-backed fingerprint cache.
type Store struct {
	db *badger.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is too chatty for a cache
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open artifact cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Current reports whether the stored fingerprint for key matches. Lookup
// failures read as a miss; the worst case is redundant work.
func (s *Store) Current(key string, fingerprint []byte) bool {
	var match bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fingerprintKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			match = bytes.Equal(val, fingerprint)
			return nil
		})
	})
	if err != nil {
		return false
	}
	return match
}

// Remember stores the fingerprint for key.
func (s *Store) Remember(key string, fingerprint []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fingerprintKeyPrefix+key), fingerprint)
	})
}

// Forget drops the entry for key. Missing keys are not an error.
func (s *Store) Forget(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(fingerprintKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
