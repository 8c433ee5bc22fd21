// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package database provides the DuckDB-backed store for the content
// catalog, taste profiles, watch history and run records.
//
// Embeddings are stored as native DOUBLE[] lists so nearest-neighbor
// retrieval runs inside DuckDB via list_cosine_similarity. The store
// implements recommend.DataProvider.
package database
