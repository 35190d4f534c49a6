package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
)

func missingRecord(id, title string, size, duration int64) *domain.Video {
	return &domain.Video{
		ID:              id,
		Title:           title,
		Source:          domain.SourceRemote,
		SourceURL:       "https://www.youtube.com/watch?v=" + id,
		SizeBytes:       size,
		DurationSeconds: duration,
		Files:           []domain.VideoFile{{Ref: "/library/" + title + ".mp4", Missing: true}},
	}
}

func TestService_Enqueue_ReconnectSuggested(t *testing.T) {
	svc, st, _ := setupTestService(t, searcherFunc(noResults))
	ctx := context.Background()

	require.NoError(t, st.CreateVideo(ctx, missingRecord("lost1", "Big Buck Bunny", 5000, 635)))

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		candidate("Big Buck Bunny.mp4", 5000, 635),
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, OutcomeReconnect, result.Outcomes[0].Kind)
	require.NotEmpty(t, result.Outcomes[0].Candidates)
	assert.Equal(t, "lost1", result.Outcomes[0].Candidates[0].Record.ID)

	// The file is parked, not queued for search.
	decisions, suggestions := svc.PendingDecisions(ctx, result.SessionID)
	assert.Empty(t, decisions)
	require.Len(t, suggestions, 1)
}

func TestService_ConfirmReconnect(t *testing.T) {
	svc, st, _ := setupTestService(t, searcherFunc(noResults))
	ctx := context.Background()

	require.NoError(t, st.CreateVideo(ctx, missingRecord("lost1", "Big Buck Bunny", 5000, 635)))

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		candidate("Big Buck Bunny.mp4", 5000, 635),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeReconnect, result.Outcomes[0].Kind)

	p := svc.Progress(ctx, result.SessionID)
	assert.Equal(t, 0, p.Done)
	assert.Equal(t, 1, p.Total)

	updated, err := svc.ConfirmReconnect(ctx, result.SessionID, "/import/Big Buck Bunny.mp4", "lost1")
	require.NoError(t, err)
	require.Len(t, updated.Files, 1)
	assert.Equal(t, "/import/Big Buck Bunny.mp4", updated.Files[0].Ref)
	assert.False(t, updated.Files[0].Missing)

	// No new record; the existing one was reused.
	videos, err := st.ListVideos(ctx)
	require.NoError(t, err)
	require.Len(t, videos, 1)

	// The batch drained; session state is gone.
	assert.Empty(t, st.LoadSession(ctx, result.SessionID))
	pending, err := st.PendingSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_ConfirmReconnect_UnknownRecord(t *testing.T) {
	svc, st, emitter := setupTestService(t, searcherFunc(noResults))
	ctx := context.Background()

	require.NoError(t, st.CreateVideo(ctx, missingRecord("lost1", "Big Buck Bunny", 5000, 635)))

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		candidate("Big Buck Bunny.mp4", 5000, 635),
	})
	require.NoError(t, err)

	_, err = svc.ConfirmReconnect(ctx, result.SessionID, "/import/Big Buck Bunny.mp4", "nope")
	assert.Error(t, err)

	// The suggestion is restored so the caller can retry, and the session
	// survived the failed confirm: the batch never looked drained while the
	// suggestion was checked out.
	_, suggestions := svc.PendingDecisions(ctx, result.SessionID)
	require.Len(t, suggestions, 1)
	assert.NotEmpty(t, st.LoadSession(ctx, result.SessionID))
	assert.Empty(t, emitter.completedEvents())
}

func TestService_RejectReconnect_MovesToSearchQueue(t *testing.T) {
	svc, st, _ := setupTestService(t, searcherFunc(noResults))
	ctx := context.Background()

	require.NoError(t, st.CreateVideo(ctx, missingRecord("lost1", "Big Buck Bunny", 5000, 635)))

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		candidate("Big Buck Bunny.mp4", 5000, 635),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeReconnect, result.Outcomes[0].Kind)

	require.NoError(t, svc.RejectReconnect(ctx, result.SessionID, "/import/Big Buck Bunny.mp4"))

	d := waitForDecisionStatus(t, svc, result.SessionID, "/import/Big Buck Bunny.mp4", domain.StatusNotFound)
	assert.Equal(t, domain.ChoiceManual, d.Choice)

	_, suggestions := svc.PendingDecisions(ctx, result.SessionID)
	assert.Empty(t, suggestions)
}

// TestService_FullBatchFlow walks one batch end to end: an exact remote match
// that auto-resolves, a reconnect to an existing record, and a file nothing
// matches that ends in manual metadata entry.
func TestService_FullBatchFlow(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string) ([]match.RemoteRecord, error) {
		if query != "Big Buck Bunny" {
			return nil, nil
		}
		return []match.RemoteRecord{{
			ID:              "aqz-KE-bpKQ",
			URL:             "https://www.youtube.com/watch?v=aqz-KE-bpKQ",
			Title:           "Big Buck Bunny",
			Author:          "Blender",
			DurationSeconds: 635,
		}}, nil
	})
	svc, st, emitter := setupTestService(t, searcher)
	ctx := context.Background()

	require.NoError(t, st.CreateVideo(ctx, missingRecord("lost1", "Old Holiday Video", 9000, 300)))

	result, err := svc.Enqueue(ctx, []domain.LocalCandidate{
		candidate("Big Buck Bunny.mp4", 5000, 635),
		candidate("Old Holiday Video.mp4", 9000, 300),
		candidate("Random Home Clip.mp4", 700, 45),
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, OutcomeQueued, result.Outcomes[0].Kind)
	assert.Equal(t, OutcomeReconnect, result.Outcomes[1].Kind)
	assert.Equal(t, OutcomeQueued, result.Outcomes[2].Kind)

	// The exact match commits without user input.
	require.Eventually(t, func() bool {
		_, err := st.GetVideoByIdentity(ctx, "https://www.youtube.com/watch?v=aqz-KE-bpKQ")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	// The unmatched file falls through to manual entry.
	waitForDecisionStatus(t, svc, result.SessionID, "/import/Random Home Clip.mp4", domain.StatusNotFound)

	_, err = svc.ConfirmReconnect(ctx, result.SessionID, "/import/Old Holiday Video.mp4", "lost1")
	require.NoError(t, err)

	p := svc.Progress(ctx, result.SessionID)
	assert.Equal(t, 2, p.Done)
	assert.Equal(t, 3, p.Total)

	res, err := svc.Resolve(ctx, result.SessionID, []Resolution{{
		SourceRef: "/import/Random Home Clip.mp4",
		Action:    ActionManual,
		Manual:    &domain.ManualMetadata{Title: "Random Home Clip"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	// Two new records plus the reconnected one.
	videos, err := st.ListVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, videos, 3)

	require.Eventually(t, func() bool {
		return len(emitter.completedEvents()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, st.LoadSession(ctx, result.SessionID))
}
