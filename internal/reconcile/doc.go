// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package reconcile converges an owner's on-disk library directory to a
// planned artifact set.
//
// The expected set is computed fresh each run and never persisted; the
// directory itself is the only state. Reconciliation diffs the managed files
// on disk against the plan, writes what is missing or changed, deletes
// managed files no longer planned, and leaves everything else alone.
// Individual artifact failures are logged and counted but do not abort the
// run.
package reconcile
