// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"fmt"
	"time"
)

// RecordWatch appends one watch event for an owner.
func (db *DB) RecordWatch(ctx context.Context, ownerID string, itemID int64, watchedAt time.Time) error {
	start := time.Now()
	var err error
	defer func() { observe("record_watch", start, err) }()

	if watchedAt.IsZero() {
		watchedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO watch_history (owner_id, item_id, watched_at) VALUES (?, ?, ?)`,
		ownerID, itemID, watchedAt)
	if err != nil {
		return fmt.Errorf("insert watch event: %w", err)
	}
	return nil
}

// ConsumedItemIDs returns the distinct ids of items the owner has watched.
// Used to exclude already-seen content from retrieval.
func (db *DB) ConsumedItemIDs(ctx context.Context, ownerID string) (map[int64]struct{}, error) {
	start := time.Now()
	var err error
	defer func() { observe("consumed_item_ids", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT item_id FROM watch_history WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	consumed := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		consumed[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}
	return consumed, nil
}
