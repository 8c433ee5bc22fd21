// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package middleware provides HTTP middleware for the ops API: request ID
// propagation and Prometheus request instrumentation.
package middleware
