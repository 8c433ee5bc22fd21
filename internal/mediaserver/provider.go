// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package mediaserver

import (
	"context"
	"errors"

	"github.com/miragelib/mirage/internal/models"
)

// ErrLibraryNotFound is returned when a named library does not exist on the
// server.
var ErrLibraryNotFound = errors.New("library not found")

// Library is one server-side library (virtual folder).
type Library struct {
	ID             string
	Name           string
	CollectionType string
	Paths          []string
}

// AccessPolicy is the subset of a server user's policy the binder manages.
type AccessPolicy struct {
	EnableAllFolders bool
	EnabledFolders   []string
}

// Provider abstracts the external media server's API surface used by
// Mirage. Implementations must be safe for concurrent use.
type Provider interface {
	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// GetLibraries lists the server's libraries.
	GetLibraries(ctx context.Context) ([]Library, error)

	// CreateLibrary creates a library over the given content paths.
	CreateLibrary(ctx context.Context, name, collectionType string, paths []string) error

	// RefreshLibrary triggers a metadata scan of one library.
	RefreshLibrary(ctx context.Context, libraryID string) error

	// UserAccess returns the library access policy of one server user.
	UserAccess(ctx context.Context, userID string) (AccessPolicy, error)

	// SetUserAccess replaces the library access policy of one server user.
	SetUserAccess(ctx context.Context, userID string, policy AccessPolicy) error

	// StreamURL returns an externally resolvable playback URL for a source
	// item. Computed locally; never fails.
	StreamURL(externalItemID string) string
}

// CollectionType maps a media type to the server's library collection type.
func CollectionType(mt models.MediaType) string {
	if mt == models.MediaTypeSeries {
		return "tvshows"
	}
	return "movies"
}
