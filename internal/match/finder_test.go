package match

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher returns canned results or an error.
type fakeSearcher struct {
	results []RemoteRecord
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]RemoteRecord, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestFinder(s Searcher) *Finder {
	return NewFinder(s, slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestFindMatch_ExactTitleShortCircuits(t *testing.T) {
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "v1", Title: "Lecture 1", DurationSeconds: 0},
		{ID: "v2", Title: "Lecture 1 (extended)", DurationSeconds: 3600},
	}}
	f := newTestFinder(searcher)

	// No duration info at all; the exact path ignores duration entirely.
	m := f.FindMatch(context.Background(), "Lecture 1", 0)

	require.NotNil(t, m)
	assert.Equal(t, "v1", m.RemoteID)
	assert.True(t, m.ExactTitleMatch)
	assert.Equal(t, 1.0, m.TitleSimilarity)
	assert.False(t, m.DurationKnown())
}

func TestFindMatch_ExactPathNormalizesPunctuation(t *testing.T) {
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "v1", Title: "Big Buck Bunny!", DurationSeconds: 9999},
	}}
	f := newTestFinder(searcher)

	m := f.FindMatch(context.Background(), "big.buck.bunny", 596)

	require.NotNil(t, m)
	assert.True(t, m.ExactTitleMatch)
}

func TestFindMatch_DurationGate(t *testing.T) {
	// "Big Buck Bunny 2" vs probe "Big Buck Bunny": similarity 0.875 > 0.85,
	// so the duration gap decides acceptance.
	within := &fakeSearcher{results: []RemoteRecord{
		{ID: "near", Title: "Big Buck Bunny 2", DurationSeconds: 601},
	}}
	m := newTestFinder(within).FindMatch(context.Background(), "Big Buck Bunny", 596)
	require.NotNil(t, m)
	assert.Equal(t, int64(5), m.DurationDiffSeconds)
	assert.False(t, m.ExactTitleMatch)

	beyond := &fakeSearcher{results: []RemoteRecord{
		{ID: "far", Title: "Big Buck Bunny 2", DurationSeconds: 602},
	}}
	assert.Nil(t, newTestFinder(beyond).FindMatch(context.Background(), "Big Buck Bunny", 596),
		"6 second gap must be rejected when probe duration is known")
}

func TestFindMatch_UnknownRemoteDurationRejectedWhenProbeKnown(t *testing.T) {
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "v", Title: "Big Buck Bunny 2", DurationSeconds: 0},
	}}

	assert.Nil(t, newTestFinder(searcher).FindMatch(context.Background(), "Big Buck Bunny", 596))
}

func TestFindMatch_UnknownProbeDurationNeedsHigherSimilarity(t *testing.T) {
	// similarity("big buck bunny 2", "big buck bunny") = 0.875: enough with
	// duration support, not enough for the 0.92 gate required without it.
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "v", Title: "Big Buck Bunny 2", DurationSeconds: 600},
	}}
	assert.Nil(t, newTestFinder(searcher).FindMatch(context.Background(), "Big Buck Bunny", 0))

	closeEnough := &fakeSearcher{results: []RemoteRecord{
		{ID: "v", Title: "Big Buck Bunnyy", DurationSeconds: 600},
	}}
	m := newTestFinder(closeEnough).FindMatch(context.Background(), "Big Buck Bunny", 0)
	require.NotNil(t, m)
	assert.False(t, m.DurationKnown())
}

func TestFindMatch_ShortQueryRejected(t *testing.T) {
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "v", Title: "abc def", DurationSeconds: 100},
	}}

	assert.Nil(t, newTestFinder(searcher).FindMatch(context.Background(), "abc", 100))
}

func TestFindMatch_AuthorHintIsHardGate(t *testing.T) {
	results := []RemoteRecord{
		{ID: "wrong-author", Title: "Big Buck Bunny 2", Author: "Someone Else Entirely", DurationSeconds: 596},
	}
	f := newTestFinder(&fakeSearcher{results: results})

	assert.Nil(t, f.FindMatch(context.Background(), "Blender - Big Buck Bunny", 596))

	accepted := []RemoteRecord{
		{ID: "close-author", Title: "Big Buck Bunny 2", Author: "Blendar", DurationSeconds: 596},
	}
	f = newTestFinder(&fakeSearcher{results: accepted})

	m := f.FindMatch(context.Background(), "Blender - Big Buck Bunny", 596)
	require.NotNil(t, m)
	assert.Equal(t, "close-author", m.RemoteID)
}

func TestFindMatch_PicksBestCombinedScore(t *testing.T) {
	searcher := &fakeSearcher{results: []RemoteRecord{
		{ID: "drifted", Title: "Big Buck Bunny 2", DurationSeconds: 601}, // sim 0.875, penalty 5/60
		{ID: "tight", Title: "Big Buck Bunnyy", DurationSeconds: 596},    // sim 0.933, penalty 0
	}}
	f := newTestFinder(searcher)

	m := f.FindMatch(context.Background(), "Big Buck Bunny", 596)

	require.NotNil(t, m)
	assert.Equal(t, "tight", m.RemoteID)
}

func TestFindMatch_SearchErrorDegradesToNoMatch(t *testing.T) {
	f := newTestFinder(&fakeSearcher{err: errors.New("connection refused")})

	assert.Nil(t, f.FindMatch(context.Background(), "Big Buck Bunny", 596))
}

func TestFindMatch_EmptyResults(t *testing.T) {
	f := newTestFinder(&fakeSearcher{})

	assert.Nil(t, f.FindMatch(context.Background(), "Big Buck Bunny", 596))
}

func TestFindMatch_SearchesWithTitlePartOnly(t *testing.T) {
	searcher := &fakeSearcher{}
	f := newTestFinder(searcher)

	f.FindMatch(context.Background(), "Blender Foundation - Big Buck Bunny", 596)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "Big Buck Bunny", searcher.queries[0])
}
