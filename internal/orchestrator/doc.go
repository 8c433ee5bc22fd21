// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package orchestrator drives end-to-end generation runs: candidate
// selection, artifact planning, filesystem reconciliation and media server
// binding, one target profile at a time.
//
// Targets are independent failure domains; one failing profile never stops
// the rest of a full run. Per-owner locks keep concurrent triggers for the
// same library from interleaving filesystem writes.
package orchestrator
