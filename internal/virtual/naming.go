// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package virtual

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxBaseName caps derived base names. Leaves headroom for suffixes
// like "-poster.jpg" under common 255-byte filename limits.
const DefaultMaxBaseName = 120

var (
	// Characters invalid or troublesome in paths on at least one supported
	// filesystem.
	invalidPathCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multiSpaceRe       = regexp.MustCompile(`\s+`)
)

// BaseName derives the filesystem-safe base name for one item's artifacts:
// "Title (Year) [externalID]". The embedded external id guarantees
// uniqueness even for identical title+year pairs; invalid characters are
// stripped and whitespace collapsed before the length cap is applied.
func BaseName(title string, year int, externalID string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxBaseName
	}

	clean := invalidPathCharsRe.ReplaceAllString(title, "")
	clean = multiSpaceRe.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		clean = "Untitled"
	}

	suffix := fmt.Sprintf(" [%s]", sanitizeID(externalID))
	if year > 0 {
		suffix = fmt.Sprintf(" (%d)%s", year, suffix)
	}

	// The suffix carries the uniqueness and is never truncated. Truncation
	// drops whole runes so multi-byte titles stay valid UTF-8.
	if budget := maxLen - len(suffix); budget > 0 && len(clean) > budget {
		runes := []rune(clean)
		for len(runes) > 0 && len(string(runes)) > budget {
			runes = runes[:len(runes)-1]
		}
		clean = strings.TrimSpace(string(runes))
	}
	return clean + suffix
}

// sanitizeID strips path-hostile characters from an external id.
func sanitizeID(id string) string {
	return invalidPathCharsRe.ReplaceAllString(id, "")
}
