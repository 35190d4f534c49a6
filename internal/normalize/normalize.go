// Package normalize provides utilities for normalizing and sanitizing text
// before comparison. Every title comparison in the reconciliation engine goes
// through Title so that punctuation, case, and Unicode composition differences
// never affect scoring.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// placeholderTokens are generic downloader-site labels that show up on the
// left of "Author - Title" shaped filenames. A left side equal to one of
// these is a site watermark, not an author hint.
//
//nolint:gochecknoglobals // Static lookup table
var placeholderTokens = map[string]bool{
	"youtube":     true,
	"twitter":     true,
	"x":           true,
	"facebook":    true,
	"instagram":   true,
	"tiktok":      true,
	"vimeo":       true,
	"video":       true,
	"videos":      true,
	"download":    true,
	"unknown":     true,
	"various":     true,
	"va":          true,
	"twitch":      true,
	"dailymotion": true,
}

// Title normalizes a string for fuzzy comparison: Unicode-decompose (NFKD),
// lowercase, replace every run of non-letter/non-digit characters with a
// single space, trim, and collapse internal whitespace.
//
// Title is pure and idempotent: Title(Title(s)) == Title(s).
func Title(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.Is(unicode.Mn, r):
			// Combining marks left over from NFKD decomposition are
			// dropped, not treated as separators.
		default:
			// Everything else, null bytes from sloppy metadata parsers
			// included, is a separator.
			space = true
		}
	}

	return b.String()
}

// SplitTitleAuthor splits a filename-shaped string on the first " - "
// occurrence. If both sides are non-empty and the left side is not a known
// placeholder token, the left side is an author hint and the right side is
// the query. Otherwise the whole trimmed string is the query with no hint.
func SplitTitleAuthor(s string) (query, authorHint string) {
	s = strings.TrimSpace(s)

	if left, right, ok := strings.Cut(s, " - "); ok {
		left = strings.TrimSpace(left)
		right = strings.TrimSpace(right)
		if left != "" && right != "" && !placeholderTokens[Title(left)] {
			return right, left
		}
	}

	return s, ""
}
