// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package mediaserver binds generated library directories to an external
// media server.
//
// The Provider interface abstracts the server's REST API; the Jellyfin
// implementation is wrapped in a circuit breaker so a slow or dead server
// cannot stall runs. The Binder layers library lifecycle on top: ensure a
// server-side library exists for a directory, trigger a scan after
// reconciliation, and grant the owning user access.
package mediaserver
