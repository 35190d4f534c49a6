package reconcile

import (
	"context"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/sse"
)

// startRunner launches the async search loop for a batch unless one is
// already running. One loop per batch; items are searched strictly in
// arrival order.
func (s *Service) startRunner(b *batch) {
	if !b.alive.Load() {
		return
	}
	if !b.setRunning() {
		return
	}
	go s.runSearchLoop(b)
}

// runSearchLoop walks the batch's decisions and resolves each pending
// search, bounded per item. The loop checks the liveness flag at every
// iteration boundary and exits promptly on cancellation; unsearched items
// stay in StatusSearching and are safe to resume later.
func (s *Service) runSearchLoop(b *batch) {
	defer b.clearRunning()

	for {
		if !b.alive.Load() {
			s.logger.Debug("search loop exiting on cancellation", "session_id", b.id)
			return
		}

		d := b.nextSearching()
		if d == nil {
			break
		}

		s.searchOne(b, d)
	}

	s.logger.Debug("search loop drained", "session_id", b.id)
	s.finishIfEmpty(context.Background(), b)
}

// searchOne runs the bounded match search for a single decision.
// Timeouts and search errors both degrade to "not found"; there is always
// a manual fallback.
func (s *Service) searchOne(b *batch, d *domain.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ItemTimeout)
	result := s.finder.FindMatch(ctx, d.Candidate.DerivedTitle, d.Candidate.DurationSeconds)
	cancel()

	if !b.alive.Load() {
		// Cancelled while searching; abandon the result and keep the
		// item searchable for a later resume.
		return
	}

	if result == nil {
		snap := b.updateDecision(d, func(d *domain.Decision) { d.MarkNotFound() })
		s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))
		return
	}

	// Exact title matches auto-apply unless the user already intervened.
	autoApply := false
	snap := b.updateDecision(d, func(d *domain.Decision) {
		d.MarkFound(result)
		if result.ExactTitleMatch && d.Choice == domain.ChoiceUnset && d.Manual == nil {
			autoApply = d.ChooseMatch()
		}
	})
	s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))

	if autoApply {
		applyCtx := context.Background()
		added, skipped := s.applyOne(applyCtx, b, d)
		s.logger.Debug("exact match auto-applied",
			"session_id", b.id,
			"source_ref", snap.Candidate.SourceRef,
			"added", added,
			"skipped", skipped,
		)
		s.finishIfEmpty(applyCtx, b)
	}
}

// finishIfEmpty closes out a fully-resolved batch: clears the durable
// session, drops the pending pointer, and announces completion.
func (s *Service) finishIfEmpty(ctx context.Context, b *batch) {
	if !b.empty() {
		return
	}

	s.batchMu.Lock()
	_, still := s.batches[b.id]
	delete(s.batches, b.id)
	s.batchMu.Unlock()
	if !still {
		return
	}

	if err := s.store.ClearSession(ctx, b.id); err != nil {
		s.logger.Warn("failed to clear completed session",
			"session_id", b.id,
			"error", err,
		)
	}

	added, skipped := b.counts()
	s.emitter.Emit(sse.NewCompletedEvent(b.id, added, skipped))

	s.logger.Info("reconciliation batch completed",
		"session_id", b.id,
		"added", added,
		"skipped", skipped,
	)
}
