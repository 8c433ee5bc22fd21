// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package recommend turns a taste profile into a ranked, diversified
// candidate list.
//
// The pipeline has three stages:
//
//  1. Source: nearest-neighbor retrieval over stored embeddings with hard
//     filters (genre membership, policy-rating ceiling, consumed exclusion),
//     falling back to a popularity proxy when no taste vector exists.
//  2. Sampler: weighted sampling without replacement over an oversampled
//     pool, so repeated generations vary while favoring high scores.
//  3. Ranking: the sampled subset is re-sorted by score descending and
//     assigned ranks 1..n, keeping the presented order quality-monotonic.
//
// The package has no dependencies on the database package; the DataProvider
// interface decouples retrieval from storage.
package recommend
