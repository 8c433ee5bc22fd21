// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import "fmt"

// schemaStatements creates all tables and indexes. Statements are
// idempotent; there is no migration history yet.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id BIGINT PRIMARY KEY,
		external_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		year INTEGER NOT NULL DEFAULT 0,
		media_type VARCHAR NOT NULL,
		overview VARCHAR NOT NULL DEFAULT '',
		genres VARCHAR[],
		directors VARCHAR[],
		actors VARCHAR[],
		file_path VARCHAR NOT NULL DEFAULT '',
		poster_url VARCHAR NOT NULL DEFAULT '',
		backdrop_url VARCHAR NOT NULL DEFAULT '',
		community_rating DOUBLE,
		policy_rating INTEGER,
		embedding DOUBLE[]
	)`,

	`CREATE TABLE IF NOT EXISTS taste_profiles (
		id VARCHAR PRIMARY KEY,
		owner_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		media_type VARCHAR NOT NULL,
		genre_filters VARCHAR[],
		text_preferences VARCHAR NOT NULL DEFAULT '',
		example_item_ids BIGINT[],
		policy_ceiling INTEGER,
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS watch_history (
		owner_id VARCHAR NOT NULL,
		item_id BIGINT NOT NULL,
		watched_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR PRIMARY KEY,
		profile_id VARCHAR NOT NULL,
		owner_id VARCHAR NOT NULL,
		media_type VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		step VARCHAR NOT NULL DEFAULT '',
		candidate_count INTEGER NOT NULL DEFAULT 0,
		artifacts_created INTEGER NOT NULL DEFAULT 0,
		artifacts_deleted INTEGER NOT NULL DEFAULT 0,
		error VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_watch_history_owner ON watch_history(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_media_type ON content_items(media_type)`,
}

// initSchema applies the schema statements.
func (db *DB) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
