package api

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconnect"
	"github.com/reelkeeperapp/reelkeeper-server/internal/search"
	"github.com/reelkeeperapp/reelkeeper-server/internal/sse"
	"github.com/reelkeeperapp/reelkeeper-server/internal/store"
)

// noResultSearcher satisfies the match search capability without a network.
type noResultSearcher struct{}

func (noResultSearcher) Search(_ context.Context, _ string) ([]match.RemoteRecord, error) {
	return nil, nil
}

type testServer struct {
	server *Server
	api    humatest.TestAPI
	store  *store.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sseManager := sse.NewManager(logger)
	sseHandler := sse.NewHandler(sseManager, logger)

	st, err := store.New(t.TempDir(), logger, sseManager)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	index, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = index.Close()
	})
	st.SetSearchIndexer(index)

	reconcileService := reconcile.NewService(
		st,
		match.NewFinder(noResultSearcher{}, logger),
		reconnect.NewFinder(logger),
		nil,
		sseManager,
		logger,
		reconcile.Options{ItemTimeout: 500 * time.Millisecond},
	)

	server := NewServer(st, reconcileService, index, sseHandler, logger)

	return &testServer{
		server: server,
		api:    humatest.Wrap(t, server.api),
		store:  st,
	}
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestEnqueueAndResolveFlow(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/reconcile", map[string]any{
		"candidates": []map[string]any{
			{
				"source_ref":       "/import/Family Reunion.mp4",
				"raw_name":         "Family Reunion.mp4",
				"size_bytes":       1000,
				"duration_seconds": 120,
			},
		},
	})
	require.Equal(t, http.StatusAccepted, resp.Code)

	var enq reconcile.EnqueueResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &enq))
	require.NotEmpty(t, enq.SessionID)
	require.Len(t, enq.Outcomes, 1)
	assert.Equal(t, reconcile.OutcomeQueued, enq.Outcomes[0].Kind)

	// The empty-result search must settle into not_found with manual
	// preselected before we resolve.
	require.Eventually(t, func() bool {
		resp := ts.api.Get("/api/v1/reconcile/" + enq.SessionID + "/decisions")
		if resp.Code != http.StatusOK {
			return false
		}
		var body DecisionsResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
			return false
		}
		return len(body.Decisions) == 1 && body.Decisions[0].Status == "not_found"
	}, 5*time.Second, 10*time.Millisecond)

	resp = ts.api.Get("/api/v1/reconcile/" + enq.SessionID + "/progress")
	require.Equal(t, http.StatusOK, resp.Code)
	var progress ProgressResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &progress))
	assert.Equal(t, 0, progress.Done)
	assert.Equal(t, 1, progress.Total)

	resp = ts.api.Post("/api/v1/reconcile/"+enq.SessionID+"/resolve", map[string]any{
		"resolutions": []map[string]any{
			{
				"source_ref": "/import/Family Reunion.mp4",
				"action":     "manual",
				"manual":     map[string]any{"title": "Family Reunion"},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var resolved ResolveResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &resolved))
	assert.Equal(t, 1, resolved.Added)
	assert.Equal(t, 0, resolved.Skipped)

	videos, err := ts.store.ListVideos(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Family Reunion", videos[0].Title)
}

func TestEnqueue_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	// Missing source_ref and raw_name fails schema validation.
	resp := ts.api.Post("/api/v1/reconcile", map[string]any{
		"candidates": []map[string]any{{"size_bytes": 10}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCancel_UnknownSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Delete("/api/v1/reconcile/ses-unknown")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCancelFlow(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/reconcile", map[string]any{
		"candidates": []map[string]any{
			{
				"source_ref":       "/import/Some Clip.mp4",
				"raw_name":         "Some Clip.mp4",
				"size_bytes":       1000,
				"duration_seconds": 60,
			},
		},
	})
	require.Equal(t, http.StatusAccepted, resp.Code)
	var enq reconcile.EnqueueResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &enq))

	resp = ts.api.Delete("/api/v1/reconcile/" + enq.SessionID)
	assert.Equal(t, http.StatusOK, resp.Code)

	// New candidates are refused after cancellation.
	resp = ts.api.Post("/api/v1/reconcile/"+enq.SessionID+"/candidates", map[string]any{
		"candidates": []map[string]any{
			{
				"source_ref": "/import/Another Clip.mp4",
				"raw_name":   "Another Clip.mp4",
			},
		},
	})
	assert.Equal(t, http.StatusGone, resp.Code)
}

func TestSearchEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.store.CreateVideo(ctx, &domain.Video{
		ID:              "vid-1",
		Title:           "Big Buck Bunny",
		Author:          "Blender",
		Source:          domain.SourceLocal,
		DurationSeconds: 635,
		Files:           []domain.VideoFile{{Ref: "/library/bbb.mp4"}},
	}))

	resp := ts.api.Get("/api/v1/search?q=bunny")
	require.Equal(t, http.StatusOK, resp.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.EqualValues(t, 1, result.Total)
	assert.Equal(t, "Big Buck Bunny", result.Hits[0].Title)
}
