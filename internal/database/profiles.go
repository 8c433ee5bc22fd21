// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/recommend"
)

const profileColumns = `id, owner_id, name, media_type, genre_filters,
	text_preferences, example_item_ids, policy_ceiling, active,
	created_at, updated_at`

// CreateTasteProfile inserts a new profile. A missing id is generated.
func (db *DB) CreateTasteProfile(ctx context.Context, profile *models.TasteProfile) error {
	start := time.Now()
	var err error
	defer func() { observe("create_taste_profile", start, err) }()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO taste_profiles (
		id, owner_id, name, media_type, genre_filters,
		text_preferences, example_item_ids, policy_ceiling, active,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, %s, ?, %s, ?, ?, ?, ?)`,
		listExpr(len(profile.GenreFilters)),
		listExpr(len(profile.ExampleItemIDs)),
	)

	args := []any{profile.ID, profile.OwnerID, profile.Name, string(profile.MediaType)}
	args = appendAny(args, profile.GenreFilters)
	args = append(args, profile.TextPreferences)
	args = appendAny(args, profile.ExampleItemIDs)
	args = append(args, profile.PolicyCeiling, profile.Active, profile.CreatedAt, profile.UpdatedAt)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert taste profile: %w", err)
	}
	return nil
}

// TasteProfile returns one profile by id or recommend.ErrProfileNotFound.
func (db *DB) TasteProfile(ctx context.Context, profileID string) (*models.TasteProfile, error) {
	start := time.Now()
	var err error
	defer func() { observe("get_taste_profile", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM taste_profiles WHERE id = ?`, profileID)

	profile, scanErr := scanProfile(row.Scan)
	if errors.Is(scanErr, sql.ErrNoRows) {
		err = recommend.ErrProfileNotFound
		return nil, fmt.Errorf("profile %s: %w", profileID, recommend.ErrProfileNotFound)
	}
	if scanErr != nil {
		err = scanErr
		return nil, fmt.Errorf("scan taste profile: %w", scanErr)
	}
	return profile, nil
}

// ListActiveProfiles returns all active profiles ordered by creation time.
// These are the targets of a full synchronization run.
func (db *DB) ListActiveProfiles(ctx context.Context) ([]*models.TasteProfile, error) {
	start := time.Now()
	var err error
	defer func() { observe("list_active_profiles", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM taste_profiles WHERE active ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query active profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []*models.TasteProfile
	for rows.Next() {
		profile, scanErr := scanProfile(rows.Scan)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("scan taste profile: %w", scanErr)
		}
		profiles = append(profiles, profile)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate taste profiles: %w", err)
	}
	return profiles, nil
}

// UpdateTasteProfile replaces the mutable fields of an existing profile.
// The id and owner never change; the owner key must stay stable.
func (db *DB) UpdateTasteProfile(ctx context.Context, profile *models.TasteProfile) error {
	start := time.Now()
	var err error
	defer func() { observe("update_taste_profile", start, err) }()

	profile.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`UPDATE taste_profiles SET
		name = ?, media_type = ?, genre_filters = %s,
		text_preferences = ?, example_item_ids = %s,
		policy_ceiling = ?, active = ?, updated_at = ?
	WHERE id = ?`,
		listExpr(len(profile.GenreFilters)),
		listExpr(len(profile.ExampleItemIDs)),
	)

	args := []any{profile.Name, string(profile.MediaType)}
	args = appendAny(args, profile.GenreFilters)
	args = append(args, profile.TextPreferences)
	args = appendAny(args, profile.ExampleItemIDs)
	args = append(args, profile.PolicyCeiling, profile.Active, profile.UpdatedAt, profile.ID)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update taste profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = recommend.ErrProfileNotFound
		return fmt.Errorf("profile %s: %w", profile.ID, recommend.ErrProfileNotFound)
	}
	return nil
}

// DeleteTasteProfile removes a profile. The on-disk library directory and
// server-side library are cleaned up by the orchestrator, not here.
func (db *DB) DeleteTasteProfile(ctx context.Context, profileID string) error {
	start := time.Now()
	var err error
	defer func() { observe("delete_taste_profile", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `DELETE FROM taste_profiles WHERE id = ?`, profileID)
	if err != nil {
		return fmt.Errorf("delete taste profile: %w", err)
	}
	return nil
}

// scanProfile reads one profile row via the given scan function.
func scanProfile(scan func(...any) error) (*models.TasteProfile, error) {
	var (
		profile     models.TasteProfile
		mediaType   string
		genres, ids any
	)
	if err := scan(
		&profile.ID, &profile.OwnerID, &profile.Name, &mediaType, &genres,
		&profile.TextPreferences, &ids, &profile.PolicyCeiling, &profile.Active,
		&profile.CreatedAt, &profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	profile.MediaType = models.MediaType(mediaType)
	profile.GenreFilters = toStringSlice(genres)
	profile.ExampleItemIDs = toInt64Slice(ids)
	return &profile, nil
}
