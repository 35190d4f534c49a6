package reconcile

import (
	"sync"
	"sync/atomic"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// batch is the in-memory state of one reconciliation session.
//
// Decisions are kept in arrival order; the search loop walks the slice
// front to back so items resolve in the order they were enqueued. The
// alive flag is the batch liveness check: the loop reads it at every
// iteration boundary and exits promptly once cancelled.
type batch struct {
	id string

	mu        sync.Mutex
	decisions []*domain.Decision
	// reconnects holds candidates awaiting a synchronous reconnect choice,
	// keyed by source ref. They bypass the async search queue.
	reconnects map[string]reconnectPending
	done       int
	total      int
	added      int
	skipped    int
	running    bool

	alive atomic.Bool
}

type reconnectPending struct {
	candidate  domain.LocalCandidate
	candidates []domain.ReconnectCandidate
}

func newBatch(id string) *batch {
	b := &batch{
		id:         id,
		reconnects: make(map[string]reconnectPending),
	}
	b.alive.Store(true)
	return b
}

// addDecision appends a decision and grows the total.
func (b *batch) addDecision(d *domain.Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decisions = append(b.decisions, d)
	b.total++
}

// addReconnect parks a candidate awaiting a reconnect choice.
func (b *batch) addReconnect(c domain.LocalCandidate, candidates []domain.ReconnectCandidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reconnects[c.SourceRef] = reconnectPending{candidate: c, candidates: candidates}
	b.total++
}

// takeReconnect removes and returns a parked reconnect candidate.
func (b *batch) takeReconnect(sourceRef string) (reconnectPending, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.reconnects[sourceRef]
	if ok {
		delete(b.reconnects, sourceRef)
	}
	return p, ok
}

// restoreReconnect puts a reconnect candidate back after a failed commit.
func (b *batch) restoreReconnect(p reconnectPending) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reconnects[p.candidate.SourceRef] = p
}

// countResolved registers n items that were resolved at intake
// (duplicates): they enter the totals already done.
func (b *batch) countResolved(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done += n
	b.total += n
}

// markDone advances the done counter for items already counted in the
// total, such as a confirmed reconnect.
func (b *batch) markDone(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done += n
}

// recordApply accumulates the batch-level added/skipped aggregates.
func (b *batch) recordApply(added, skipped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added += added
	b.skipped += skipped
}

// counts returns the aggregate added/skipped counters.
func (b *batch) counts() (added, skipped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.added, b.skipped
}

// nextSearching returns the first decision still awaiting its search.
func (b *batch) nextSearching() *domain.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.decisions {
		if d.Status == domain.StatusSearching {
			return d
		}
	}
	return nil
}

// findDecision locates a live decision by its candidate's source ref.
func (b *batch) findDecision(sourceRef string) *domain.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.decisions {
		if d.Candidate.SourceRef == sourceRef {
			return d
		}
	}
	return nil
}

// updateDecision mutates a live decision under the batch lock and returns
// a value copy of its state afterwards. Every write to a decision owned by
// a batch goes through here; readers get copies, never the live pointer.
func (b *batch) updateDecision(d *domain.Decision, fn func(*domain.Decision)) domain.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn != nil {
		fn(d)
	}
	return *d
}

// removeDecision drops a committed decision and advances the done counter.
func (b *batch) removeDecision(d *domain.Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.decisions {
		if existing == d {
			b.decisions = append(b.decisions[:i], b.decisions[i+1:]...)
			b.done++
			return
		}
	}
}

// snapshot returns value copies of the pending decisions. The search loop
// keeps mutating the live ones, so callers never see a shared pointer.
func (b *batch) snapshot() []*domain.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*domain.Decision, len(b.decisions))
	for i, d := range b.decisions {
		c := *d
		out[i] = &c
	}
	return out
}

// reconnectSnapshot copies the parked reconnect suggestions.
func (b *batch) reconnectSnapshot() []ReconnectSuggestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ReconnectSuggestion, 0, len(b.reconnects))
	for _, p := range b.reconnects {
		out = append(out, ReconnectSuggestion{
			Candidate:  p.candidate,
			Candidates: p.candidates,
		})
	}
	return out
}

// progress returns the current {done, total} counters.
func (b *batch) progress() domain.Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.Progress{Done: b.done, Total: b.total}
}

// empty reports whether no pending work remains. The done counter must
// have caught up with the total: an item taken out of the reconnect map
// but not yet committed keeps the batch open, so a transient emptiness
// during a take/commit sequence never finishes it.
func (b *batch) empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.decisions) == 0 && len(b.reconnects) == 0 && b.done >= b.total
}

// setRunning flips the runner flag; returns false if it was already set.
func (b *batch) setRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return false
	}
	b.running = true
	return true
}

func (b *batch) clearRunning() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
}
