// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

// ArtifactKind classifies one on-disk artifact.
type ArtifactKind string

const (
	// KindPointer is a .strm file whose content is a path or stream URL.
	KindPointer ArtifactKind = "pointer"
	// KindSidecar is a .nfo metadata file read during library scans.
	KindSidecar ArtifactKind = "sidecar"
	// KindPoster is a downloaded poster image.
	KindPoster ArtifactKind = "poster"
	// KindBackdrop is a downloaded backdrop/fanart image.
	KindBackdrop ArtifactKind = "backdrop"
	// KindPlaceholder is an ordering placeholder file for container types
	// (both the pointer and the sidecar of the invisible episode).
	KindPlaceholder ArtifactKind = "placeholder"
)

// Image reports whether the artifact is materialized by downloading bytes
// rather than writing planned content.
func (k ArtifactKind) Image() bool {
	return k == KindPoster || k == KindBackdrop
}

// Entry is one planned artifact of an owner's virtual library. The expected
// set for a run is computed fresh from the selection every time; it is never
// persisted.
type Entry struct {
	// Name is the path of the artifact relative to the owner's library
	// directory. May contain subdirectories for series layouts.
	Name string

	Kind ArtifactKind

	// OwnerKey identifies the library this entry belongs to.
	OwnerKey string

	// Content is the exact bytes to write for text artifacts. Empty for
	// image kinds.
	Content []byte

	// SourceURL is the download source for image kinds. Empty otherwise.
	SourceURL string
}
