// Package accessibility derives the wheelchair-accessibility flag of a footway
// from its OpenStreetMap surface and smoothness tags.
package accessibility

import (
	"strings"

	"golang.org/x/text/cases"
)

var accessibleSurfaces = map[string]struct{}{
	"asphalt":       {},
	"concrete":      {},
	"paved":         {},
	"paving_stones": {},
}

// poorSmoothness holds "bad" and every OSM grade below it.
var poorSmoothness = map[string]struct{}{
	"bad":           {},
	"very_bad":      {},
	"horrible":      {},
	"very_horrible": {},
	"impassable":    {},
}

var tagReplacer = strings.NewReplacer(" ", "_", "-", "_")

// normalizeTag folds case and maps separators so "Paving Stones" matches paving_stones.
func normalizeTag(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return tagReplacer.Replace(cases.Fold().String(s))
}

// Classify returns the accessibility of a footway with the given tags.
// Both tags absent yields Unknown.
func Classify(surface, smoothness string) Status {
	surface, smoothness = normalizeTag(surface), normalizeTag(smoothness)
	if surface == "" && smoothness == "" {
		return Unknown
	}
	if _, ok := accessibleSurfaces[surface]; !ok {
		return NotAccessible
	}
	if _, poor := poorSmoothness[smoothness]; poor {
		return NotAccessible
	}
	return Accessible
}
