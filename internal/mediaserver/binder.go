// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package mediaserver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/models"
)

// Binder manages the binding between generated library directories and
// server-side libraries. All operations are idempotent; binding state lives
// on the server, never locally.
type Binder struct {
	provider Provider
}

// NewBinder creates a binder over the given provider.
func NewBinder(provider Provider) *Binder {
	return &Binder{provider: provider}
}

// EnsureBound makes sure a server library named libraryName exists over dir,
// triggers a scan, and grants serverUserID access to it. Returns the
// server-side library id.
//
// Re-running against an already bound library only re-triggers the scan.
func (b *Binder) EnsureBound(ctx context.Context, libraryName, dir string, mediaType models.MediaType, serverUserID string) (string, error) {
	lib, err := b.findLibrary(ctx, libraryName)
	switch {
	case err == nil:
		// Path drift happens when the library root moved between runs; the
		// server keeps the stale path until the library is recreated there.
		if !slices.Contains(lib.Paths, dir) {
			logging.Warn().
				Str("library", libraryName).
				Str("expected_path", dir).
				Strs("server_paths", lib.Paths).
				Msg("Server library path differs from generated directory")
		}
	case errors.Is(err, ErrLibraryNotFound):
		if err := b.provider.CreateLibrary(ctx, libraryName, CollectionType(mediaType), []string{dir}); err != nil {
			return "", fmt.Errorf("create library %q: %w", libraryName, err)
		}
		logging.Info().Str("library", libraryName).Str("path", dir).Msg("Created server library")

		// Creation does not return the id; re-list to find it.
		lib, err = b.findLibrary(ctx, libraryName)
		if err != nil {
			return "", fmt.Errorf("locate created library %q: %w", libraryName, err)
		}
	default:
		return "", fmt.Errorf("list libraries: %w", err)
	}

	if err := b.provider.RefreshLibrary(ctx, lib.ID); err != nil {
		return "", fmt.Errorf("refresh library %q: %w", libraryName, err)
	}

	if serverUserID != "" {
		if err := b.grantAccess(ctx, serverUserID, lib.ID); err != nil {
			return "", fmt.Errorf("grant access to library %q: %w", libraryName, err)
		}
	}
	return lib.ID, nil
}

// findLibrary looks a library up by exact name.
func (b *Binder) findLibrary(ctx context.Context, name string) (Library, error) {
	libs, err := b.provider.GetLibraries(ctx)
	if err != nil {
		return Library{}, err
	}
	for _, lib := range libs {
		if lib.Name == name {
			return lib, nil
		}
	}
	return Library{}, ErrLibraryNotFound
}

// grantAccess merges one library id into the user's enabled folders.
// Existing grants are preserved; users with all-folder access need nothing.
func (b *Binder) grantAccess(ctx context.Context, userID, libraryID string) error {
	policy, err := b.provider.UserAccess(ctx, userID)
	if err != nil {
		return err
	}
	if policy.EnableAllFolders || slices.Contains(policy.EnabledFolders, libraryID) {
		return nil
	}
	policy.EnabledFolders = append(policy.EnabledFolders, libraryID)
	if err := b.provider.SetUserAccess(ctx, userID, policy); err != nil {
		return err
	}
	logging.Info().Str("user_id", userID).Str("library_id", libraryID).Msg("Granted user access to library")
	return nil
}
