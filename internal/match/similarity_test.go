package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Identity(t *testing.T) {
	for _, s := range []string{"a", "big buck bunny", "lecture 1", "ü ö"} {
		assert.Equal(t, 1.0, Similarity(s, s), "identical strings score 1: %q", s)
	}
}

func TestSimilarity_BothEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarity_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"big buck bunny", "big buck bunny 2008"},
		{"abc", "xyz"},
		{"", "something"},
		{"kitten", "sitting"},
	}

	for _, p := range pairs {
		assert.InDelta(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), 1e-12,
			"similarity should be symmetric for %q / %q", p[0], p[1])
	}
}

func TestSimilarity_Range(t *testing.T) {
	pairs := [][2]string{
		{"completely", "different"},
		{"a", "aaaaaaaaaa"},
		{"", "x"},
	}

	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestSimilarity_KnownDistances(t *testing.T) {
	// kitten -> sitting: distance 3, max length 7.
	assert.InDelta(t, 1-3.0/7.0, Similarity("kitten", "sitting"), 1e-12)

	// One char off in a 16-char string.
	assert.InDelta(t, 1-1.0/16.0, Similarity("big buck bunny 2", "big buck bunny 3"), 1e-12)

	// Disjoint strings bottom out at 0.
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}
