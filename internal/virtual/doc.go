// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package virtual plans the on-disk artifact set for one owner's virtual
// library.
//
// For each selected candidate the planner emits a pointer file (.strm), a
// metadata sidecar (.nfo), and optional poster/backdrop image entries. Series
// additionally get one placeholder episode carrying the synthetic "date
// added" timestamp, because the external server sorts series by episode
// timestamps rather than the show's own.
//
// Two properties are load-bearing:
//
//   - Synthetic identities are a pure hash of (ownerKey, itemID, idKind).
//     They never change across runs, so metadata refreshes do not look like
//     content changes to the external server, and they never collide with
//     the server's real catalog ids.
//   - The "date added" timestamp is now − rank×unit, so an external
//     "recently added" sort presents items in recommendation order.
//
// The expected artifact set is recomputed fresh every run and never
// persisted; package reconcile diffs it against the directory state.
package virtual
