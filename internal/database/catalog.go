// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miragelib/mirage/internal/models"
	"github.com/miragelib/mirage/internal/recommend"
)

// Ensure DB implements recommend.DataProvider
var _ recommend.DataProvider = (*DB)(nil)

// UpsertContentItem inserts or replaces one catalog row.
func (db *DB) UpsertContentItem(ctx context.Context, item *models.ContentItem) error {
	start := time.Now()
	var err error
	defer func() { observe("upsert_content_item", start, err) }()

	query := fmt.Sprintf(`INSERT OR REPLACE INTO content_items (
		id, external_id, title, year, media_type, overview,
		genres, directors, actors,
		file_path, poster_url, backdrop_url,
		community_rating, policy_rating, embedding
	) VALUES (?, ?, ?, ?, ?, ?, %s, %s, %s, ?, ?, ?, ?, ?, %s)`,
		listExpr(len(item.Genres)),
		listExpr(len(item.Directors)),
		listExpr(len(item.Actors)),
		embeddingExpr(item.Embedding),
	)

	args := []any{item.ID, item.ExternalID, item.Title, item.Year, string(item.MediaType), item.Overview}
	args = appendAny(args, item.Genres)
	args = appendAny(args, item.Directors)
	args = appendAny(args, item.Actors)
	args = append(args, item.FilePath, item.PosterURL, item.BackdropURL, item.CommunityRating, item.PolicyRating)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert content item %d: %w", item.ID, err)
	}
	return nil
}

// embeddingExpr renders the embedding column value. Vectors embed as
// literals; parameters inside long list constructors get unwieldy.
func embeddingExpr(vec []float64) string {
	if len(vec) == 0 {
		return "NULL"
	}
	return vectorLiteral(vec)
}

// GetContentItems returns full catalog rows for the given ids. Missing ids
// are omitted; order is unspecified.
func (db *DB) GetContentItems(ctx context.Context, ids []int64) ([]models.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()
	var err error
	defer func() { observe("get_content_items", start, err) }()

	query := fmt.Sprintf(`SELECT
		id, external_id, title, year, media_type, overview,
		genres, directors, actors,
		file_path, poster_url, backdrop_url,
		community_rating, policy_rating, embedding
	FROM content_items
	WHERE id IN (%s)`, strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, appendAny(nil, ids)...)
	if err != nil {
		return nil, fmt.Errorf("query content items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []models.ContentItem
	for rows.Next() {
		var (
			item                       models.ContentItem
			mediaType                  string
			genres, directors, actors  any
			embedding                  any
		)
		if err = rows.Scan(
			&item.ID, &item.ExternalID, &item.Title, &item.Year, &mediaType, &item.Overview,
			&genres, &directors, &actors,
			&item.FilePath, &item.PosterURL, &item.BackdropURL,
			&item.CommunityRating, &item.PolicyRating, &embedding,
		); err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		item.MediaType = models.MediaType(mediaType)
		item.Genres = toStringSlice(genres)
		item.Directors = toStringSlice(directors)
		item.Actors = toStringSlice(actors)
		item.Embedding = toFloat64Slice(embedding)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content items: %w", err)
	}
	return items, nil
}

// ItemEmbeddings returns stored embeddings for the given item ids. Items
// without an embedding are omitted.
func (db *DB) ItemEmbeddings(ctx context.Context, itemIDs []int64) ([][]float64, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	start := time.Now()
	var err error
	defer func() { observe("item_embeddings", start, err) }()

	query := fmt.Sprintf(`SELECT embedding
	FROM content_items
	WHERE embedding IS NOT NULL AND id IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ","))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, appendAny(nil, itemIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings [][]float64
	for rows.Next() {
		var raw any
		if err = rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		if vec := toFloat64Slice(raw); len(vec) > 0 {
			embeddings = append(embeddings, vec)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return embeddings, nil
}

// NearestNeighbors returns up to limit catalog rows ordered by ascending
// cosine distance to the query vector, restricted to the filter predicate.
// Returns recommend.ErrIndexUnavailable when no item of the requested media
// type has an embedding of matching dimension.
func (db *DB) NearestNeighbors(ctx context.Context, vector []float64, f recommend.Filters, limit int) ([]recommend.Neighbor, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, recommend.ErrIndexUnavailable
	}
	start := time.Now()
	var err error
	defer func() { observe("nearest_neighbors", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var indexable int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items
		 WHERE media_type = ? AND embedding IS NOT NULL AND len(embedding) = ?`,
		string(f.MediaType), len(vector),
	).Scan(&indexable)
	if err != nil {
		return nil, fmt.Errorf("count indexable items: %w", err)
	}
	if indexable == 0 {
		return nil, recommend.ErrIndexUnavailable
	}

	where, args := filterClause(f)
	query := fmt.Sprintf(`SELECT
		id, external_id, title, year,
		1 - list_cosine_similarity(embedding, %s) AS distance
	FROM content_items
	WHERE %s AND embedding IS NOT NULL AND len(embedding) = %d
	ORDER BY distance ASC, id
	LIMIT ?`, vectorLiteral(vector), where, len(vector))
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nearest neighbors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []recommend.Neighbor
	for rows.Next() {
		var n recommend.Neighbor
		if err = rows.Scan(&n.ItemID, &n.ExternalID, &n.Title, &n.Year, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return neighbors, nil
}

// TopRated returns up to limit catalog rows ordered by community rating
// descending with unrated items last, restricted to the filter predicate.
func (db *DB) TopRated(ctx context.Context, f recommend.Filters, limit int) ([]recommend.RatedItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	start := time.Now()
	var err error
	defer func() { observe("top_rated", start, err) }()

	where, args := filterClause(f)
	query := fmt.Sprintf(`SELECT id, external_id, title, year, community_rating
	FROM content_items
	WHERE %s
	ORDER BY community_rating DESC NULLS LAST, id
	LIMIT ?`, where)
	args = append(args, limit)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top rated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []recommend.RatedItem
	for rows.Next() {
		var item recommend.RatedItem
		if err = rows.Scan(&item.ItemID, &item.ExternalID, &item.Title, &item.Year, &item.Rating); err != nil {
			return nil, fmt.Errorf("scan rated item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rated items: %w", err)
	}
	return items, nil
}

// filterClause renders the hard retrieval predicate shared by similarity
// and fallback queries. Items with an unset policy rating are excluded when
// a ceiling applies.
func filterClause(f recommend.Filters) (string, []any) {
	clauses := []string{"media_type = ?"}
	args := []any{string(f.MediaType)}

	if len(f.Genres) > 0 {
		clauses = append(clauses, "list_has_any(genres, "+listExpr(len(f.Genres))+")")
		args = appendAny(args, f.Genres)
	}
	if f.PolicyCeiling != nil {
		clauses = append(clauses, "policy_rating IS NOT NULL AND policy_rating <= ?")
		args = append(args, *f.PolicyCeiling)
	}
	return strings.Join(clauses, " AND "), args
}
