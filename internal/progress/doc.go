// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package progress tracks generation runs and publishes their lifecycle as
// events on an in-process message bus.
//
// The Tracker owns the run record: status transitions, step labels and
// artifact counts are persisted through the store and mirrored onto the bus
// so observers (the ops API's recent-event feed) see them without polling
// the database.
package progress
