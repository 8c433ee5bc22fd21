// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// IdentityKind names one provider-id namespace exposed by the sidecar.
type IdentityKind string

const (
	// IdentityIMDb is the imdb uniqueid namespace.
	IdentityIMDb IdentityKind = "imdb"
	// IdentityTMDb is the tmdb uniqueid namespace.
	IdentityTMDb IdentityKind = "tmdb"
	// IdentityTVDb is the tvdb uniqueid namespace.
	IdentityTVDb IdentityKind = "tvdb"
)

// SyntheticIdentity derives a deterministic pseudo provider id for one item
// in one owner's library. The value is a 64-bit FNV-1a hash of the canonical
// key, base-36 encoded.
//
// The hash depends only on (ownerKey, itemID, kind): title, score and rank
// changes must not alter it, otherwise every metadata refresh would appear
// as a content change to the external server. The base-36 form matches no
// real provider id format, which keeps the server from merging synthetic
// entries with its own catalog.
func SyntheticIdentity(ownerKey string, itemID int64, kind IdentityKind) string {
	h := fnv.New64a()
	// Write never returns an error for fnv.
	_, _ = fmt.Fprintf(h, "%s|%d|%s", ownerKey, itemID, kind)
	return strconv.FormatUint(h.Sum64(), 36)
}
