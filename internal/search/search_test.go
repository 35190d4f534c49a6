package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	index, err := NewIndex(Options{
		DataPath: t.TempDir(),
		Logger:   nil,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = index.Close()
	})

	return index
}

func testVideo(id, title, author string, duration int64) *domain.Video {
	now := time.Now()
	return &domain.Video{
		ID:              id,
		Title:           title,
		Author:          author,
		Source:          domain.SourceRemote,
		SourceURL:       "https://www.youtube.com/watch?v=" + id,
		DurationSeconds: duration,
		Files:           []domain.VideoFile{{Ref: "tree:" + id + ".mp4"}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestNewIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_IndexVideo(t *testing.T) {
	index := setupTestIndex(t)

	err := index.IndexVideo(context.Background(), testVideo("vid-1", "Big Buck Bunny", "Blender", 635))
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestIndex_IndexVideos_Batch(t *testing.T) {
	index := setupTestIndex(t)

	videos := []*domain.Video{
		testVideo("vid-1", "Big Buck Bunny", "Blender", 635),
		testVideo("vid-2", "Sintel", "Blender", 888),
		testVideo("vid-3", "Tears of Steel", "Blender", 734),
	}

	require.NoError(t, index.IndexVideos(videos))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestIndex_DeleteVideo(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideo(context.Background(), testVideo("vid-1", "Big Buck Bunny", "Blender", 635)))
	require.NoError(t, index.DeleteVideo(context.Background(), "vid-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndex_Search_ByTitle(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideos([]*domain.Video{
		testVideo("vid-1", "Big Buck Bunny", "Blender", 635),
		testVideo("vid-2", "Sintel", "Blender", 888),
	}))

	params := DefaultParams()
	params.Query = "bunny"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "vid-1", result.Hits[0].ID)
	assert.Equal(t, "Big Buck Bunny", result.Hits[0].Title)
	assert.Equal(t, int64(635), result.Hits[0].DurationSeconds)
}

func TestIndex_Search_FuzzyTitle(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideo(context.Background(), testVideo("vid-1", "Big Buck Bunny", "Blender", 635)))

	params := DefaultParams()
	params.Query = "bunni" // one edit away

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "vid-1", result.Hits[0].ID)
}

func TestIndex_Search_SourceFilter(t *testing.T) {
	index := setupTestIndex(t)

	local := testVideo("vid-1", "Holiday Clip", "", 60)
	local.Source = domain.SourceLocal
	remote := testVideo("vid-2", "Holiday Tour", "Traveler", 300)

	require.NoError(t, index.IndexVideos([]*domain.Video{local, remote}))

	params := DefaultParams()
	params.Query = "holiday"
	params.Source = domain.SourceLocal

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "vid-1", result.Hits[0].ID)
}

func TestIndex_Search_DurationRange(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideos([]*domain.Video{
		testVideo("vid-1", "Short Clip", "Someone", 45),
		testVideo("vid-2", "Long Documentary", "Someone", 3600),
	}))

	params := DefaultParams()
	params.MinDuration = 1000

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "vid-2", result.Hits[0].ID)
}

func TestIndex_Search_MissingOnly(t *testing.T) {
	index := setupTestIndex(t)

	present := testVideo("vid-1", "Here", "", 60)
	gone := testVideo("vid-2", "Gone", "", 60)
	gone.Files[0].Missing = true

	require.NoError(t, index.IndexVideos([]*domain.Video{present, gone}))

	params := DefaultParams()
	params.MissingOnly = true

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "vid-2", result.Hits[0].ID)
}

func TestIndex_Search_EmptyQueryMatchesAll(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideos([]*domain.Video{
		testVideo("vid-1", "One", "", 10),
		testVideo("vid-2", "Two", "", 20),
	}))

	result, err := index.Search(context.Background(), DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestIndex_Rebuild(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexVideo(context.Background(), testVideo("vid-1", "Big Buck Bunny", "Blender", 635)))
	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
