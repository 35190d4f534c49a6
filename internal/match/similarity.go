// Package match finds remote metadata records for local video files by fuzzy
// title search with duration tolerance gating.
package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns an edit-distance-based similarity in [0,1] between two
// strings. Identical non-empty strings score 1; two empty strings score 0.
// Inputs are compared as-is; callers normalize first.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longest := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longest {
		longest = lb
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
