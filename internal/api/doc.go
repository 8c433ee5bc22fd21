// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package api provides the ops HTTP surface: health, Prometheus metrics,
// manual run triggers, and recent run/event feeds. It is an operational
// endpoint set, not a user-facing API.
package api
