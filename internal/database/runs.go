// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miragelib/mirage/internal/models"
)

// InsertRun creates a new run record. A missing id is generated.
func (db *DB) InsertRun(ctx context.Context, run *models.RunRecord) error {
	start := time.Now()
	var err error
	defer func() { observe("insert_run", start, err) }()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `INSERT INTO runs (
		id, profile_id, owner_id, media_type, status, step,
		candidate_count, artifacts_created, artifacts_deleted, error,
		created_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProfileID, run.OwnerID, string(run.MediaType),
		string(run.Status), run.Step,
		run.CandidateCount, run.ArtifactsCreated, run.ArtifactsDeleted, run.Error,
		run.CreatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun replaces the mutable fields of a run record.
func (db *DB) UpdateRun(ctx context.Context, run *models.RunRecord) error {
	start := time.Now()
	var err error
	defer func() { observe("update_run", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `UPDATE runs SET
		status = ?, step = ?, candidate_count = ?,
		artifacts_created = ?, artifacts_deleted = ?, error = ?,
		completed_at = ?
	WHERE id = ?`,
		string(run.Status), run.Step, run.CandidateCount,
		run.ArtifactsCreated, run.ArtifactsDeleted, run.Error,
		run.CompletedAt, run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent run records, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	var err error
	defer func() { observe("recent_runs", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT
		id, profile_id, owner_id, media_type, status, step,
		candidate_count, artifacts_created, artifacts_deleted, error,
		created_at, completed_at
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RunRecord
	for rows.Next() {
		var (
			run       models.RunRecord
			mediaType string
			status    string
		)
		if err = rows.Scan(
			&run.ID, &run.ProfileID, &run.OwnerID, &mediaType, &status, &run.Step,
			&run.CandidateCount, &run.ArtifactsCreated, &run.ArtifactsDeleted, &run.Error,
			&run.CreatedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.MediaType = models.MediaType(mediaType)
		run.Status = models.RunStatus(status)
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
