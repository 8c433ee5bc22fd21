// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package supervisor provides Suture-based process supervision for Mirage.
//
// The tree has two layers: pipeline (scheduler-driven synchronization) and
// api (the ops HTTP server). A crashing scheduler restarts with backoff
// without taking the ops endpoints down, and vice versa.
package supervisor
