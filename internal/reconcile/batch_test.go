package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

func TestBatch_ReconnectInFlightKeepsBatchOpen(t *testing.T) {
	b := newBatch("ses-open")
	b.addReconnect(candidate("Clip.mp4", 100, 10), nil)
	require.False(t, b.empty())

	p, ok := b.takeReconnect("/import/Clip.mp4")
	require.True(t, ok)

	// Taken out of the map but not yet committed. The batch must stay open
	// so a concurrent drain cannot clear the session under the commit.
	assert.False(t, b.empty())

	b.restoreReconnect(p)
	assert.False(t, b.empty())

	_, ok = b.takeReconnect("/import/Clip.mp4")
	require.True(t, ok)
	b.markDone(1)
	assert.True(t, b.empty())
}

func TestBatch_SnapshotReturnsCopies(t *testing.T) {
	b := newBatch("ses-copy")
	d := domain.NewDecision(candidate("Clip.mp4", 100, 10))
	b.addDecision(d)

	snap := b.snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, domain.StatusSearching, snap[0].Status)

	b.updateDecision(d, func(d *domain.Decision) { d.MarkNotFound() })

	// The earlier snapshot is detached from the live decision.
	assert.Equal(t, domain.StatusSearching, snap[0].Status)

	fresh := b.snapshot()
	require.Len(t, fresh, 1)
	assert.Equal(t, domain.StatusNotFound, fresh[0].Status)
}
