// Package reconcile drives batches of newly discovered local files through
// reconnection against missing-file library records and fuzzy matching
// against the remote metadata index, producing per-file decisions that the
// caller resolves and this package commits.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	apperrors "github.com/reelkeeperapp/reelkeeper-server/internal/errors"
	"github.com/reelkeeperapp/reelkeeper-server/internal/files"
	"github.com/reelkeeperapp/reelkeeper-server/internal/id"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/normalize"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconnect"
	"github.com/reelkeeperapp/reelkeeper-server/internal/sse"
	"github.com/reelkeeperapp/reelkeeper-server/internal/store"
)

// EventEmitter receives batch progress and decision events.
type EventEmitter interface {
	Emit(event any)
}

// Options configures the reconciliation service.
type Options struct {
	// ItemTimeout bounds each remote search in the async loop.
	ItemTimeout time.Duration
	// AllowRename permits renaming files to "{author} - {title}.{ext}"
	// when decisions are applied.
	AllowRename bool
}

// Service coordinates the candidate pipeline, decision state, session
// persistence, and the resolution applier.
type Service struct {
	store     *store.Store
	finder    *match.Finder
	reconnect *reconnect.Finder
	files     *files.Manager
	emitter   EventEmitter
	logger    *slog.Logger
	opts      Options

	// identityMu serializes every identity-check-then-write sequence so
	// later decisions in a batch see earlier commits and cannot create two
	// records for the same identity.
	identityMu sync.Mutex

	batchMu sync.RWMutex
	batches map[string]*batch
}

// NewService creates a reconciliation service.
func NewService(
	st *store.Store,
	finder *match.Finder,
	reconnectFinder *reconnect.Finder,
	fileManager *files.Manager,
	emitter EventEmitter,
	logger *slog.Logger,
	opts Options,
) *Service {
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 2 * time.Second
	}
	if emitter == nil {
		emitter = store.NoopEmitter{}
	}
	return &Service{
		store:     st,
		finder:    finder,
		reconnect: reconnectFinder,
		files:     fileManager,
		emitter:   emitter,
		logger:    logger,
		opts:      opts,
		batches:   make(map[string]*batch),
	}
}

// OutcomeKind classifies what intake did with one candidate.
type OutcomeKind string

// Intake outcomes.
const (
	// OutcomeQueued means a decision was created and the async search will
	// visit it.
	OutcomeQueued OutcomeKind = "queued"
	// OutcomeDuplicate means the file's identity already maps to a record;
	// nothing was written.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeReconnect means existing missing-file records matched; the
	// caller must confirm or reject the reconnection.
	OutcomeReconnect OutcomeKind = "reconnect"
)

// CandidateOutcome is the per-file result of intake.
type CandidateOutcome struct {
	SourceRef  string                      `json:"source_ref"`
	Kind       OutcomeKind                 `json:"kind"`
	Candidates []domain.ReconnectCandidate `json:"candidates,omitempty"`
}

// EnqueueResult is returned from batch creation.
type EnqueueResult struct {
	SessionID string             `json:"session_id"`
	Outcomes  []CandidateOutcome `json:"outcomes"`
}

// ReconnectSuggestion pairs a parked candidate with its ranked records.
type ReconnectSuggestion struct {
	Candidate  domain.LocalCandidate       `json:"candidate"`
	Candidates []domain.ReconnectCandidate `json:"candidates"`
}

// Enqueue creates a new session from a set of local candidates, runs the
// intake checks on each, persists the session, and starts the async
// search loop. Candidates with unknown size or duration are probed first.
func (s *Service) Enqueue(ctx context.Context, candidates []domain.LocalCandidate) (*EnqueueResult, error) {
	if len(candidates) == 0 {
		return nil, apperrors.Validation("no candidates to reconcile")
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, apperrors.Internal("generate session id").WithCause(err)
	}

	b := newBatch(sessionID)
	s.batchMu.Lock()
	s.batches[sessionID] = b
	s.batchMu.Unlock()

	result := &EnqueueResult{SessionID: sessionID}
	result.Outcomes = s.intake(ctx, b, candidates)

	if err := s.persistSession(ctx, b); err != nil {
		return nil, err
	}
	if err := s.store.SetPendingSession(ctx, sessionID); err != nil {
		s.logger.Warn("failed to set pending session pointer",
			"session_id", sessionID,
			"error", err,
		)
	}
	s.saveProgress(ctx, b)

	s.startRunner(b)

	s.logger.Info("reconciliation batch enqueued",
		"session_id", sessionID,
		"candidates", len(candidates),
	)

	return result, nil
}

// Add queues additional candidates into an already-open session. The
// search loop is restarted if it had drained.
func (s *Service) Add(ctx context.Context, sessionID string, candidates []domain.LocalCandidate) ([]CandidateOutcome, error) {
	b, err := s.liveBatch(sessionID)
	if err != nil {
		return nil, err
	}
	if !b.alive.Load() {
		return nil, apperrors.ErrCancelled
	}

	outcomes := s.intake(ctx, b, candidates)

	if err := s.persistSession(ctx, b); err != nil {
		return nil, err
	}
	s.saveProgress(ctx, b)
	s.startRunner(b)

	return outcomes, nil
}

// intake runs the synchronous pipeline stages for each candidate:
// probe unknown size/duration, duplicate check, reconnect attempt, and
// finally decision creation for the async search queue.
func (s *Service) intake(ctx context.Context, b *batch, candidates []domain.LocalCandidate) []CandidateOutcome {
	outcomes := make([]CandidateOutcome, 0, len(candidates))

	// Derived titles absorbed in this batch; a second file with the same
	// normalized title is not imported twice in one run.
	absorbed := make(map[string]bool)

	missing, err := s.store.ListMissingFileVideos(ctx)
	if err != nil {
		s.logger.Warn("failed to list missing-file records, skipping reconnect stage",
			"error", err,
		)
		missing = nil
	}

	for i := range candidates {
		c := candidates[i]
		s.probeCandidate(ctx, &c)

		outcome := s.intakeOne(ctx, b, c, missing, absorbed)
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (s *Service) intakeOne(
	ctx context.Context,
	b *batch,
	c domain.LocalCandidate,
	missing []*domain.Video,
	absorbed map[string]bool,
) CandidateOutcome {
	normTitle := normalize.Title(c.DerivedTitle)

	s.identityMu.Lock()
	existing, err := s.store.GetVideoByIdentity(ctx, c.IdentityKey())
	duplicate := err == nil && existing != nil
	if !duplicate && normTitle != "" && absorbed[normTitle] {
		duplicate = true
	}
	if !duplicate && normTitle != "" {
		absorbed[normTitle] = true
	}
	s.identityMu.Unlock()

	if duplicate {
		b.countResolved(1)
		s.logger.Debug("candidate skipped as duplicate",
			"session_id", b.id,
			"source_ref", c.SourceRef,
		)
		return CandidateOutcome{SourceRef: c.SourceRef, Kind: OutcomeDuplicate}
	}

	if rcs := s.reconnect.FindCandidates(missing, c.DerivedTitle, c.SizeBytes, c.DurationSeconds); len(rcs) > 0 {
		b.addReconnect(c, rcs)
		return CandidateOutcome{SourceRef: c.SourceRef, Kind: OutcomeReconnect, Candidates: rcs}
	}

	d := domain.NewDecision(c)
	if c.Match != nil {
		// Resumed entry with a pre-computed match; no second search.
		d.MarkFound(c.Match)
	}
	// Copy before publishing: once the decision is in the batch the search
	// loop owns its mutation.
	snap := *d
	b.addDecision(d)
	s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))

	return CandidateOutcome{SourceRef: c.SourceRef, Kind: OutcomeQueued}
}

// probeCandidate fills unknown size and duration from the file itself.
func (s *Service) probeCandidate(ctx context.Context, c *domain.LocalCandidate) {
	if s.files == nil {
		return
	}
	if c.SizeBytes <= 0 {
		c.SizeBytes = s.files.Length(c.SourceRef)
	}
	if c.DurationSeconds <= 0 {
		probeCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
		c.DurationSeconds = s.files.ProbeDuration(probeCtx, c.SourceRef)
		cancel()
	}
}

// ConfirmReconnect attaches the candidate's file to an existing record.
// This is the synchronous reconnect path; it bypasses the decision queue.
func (s *Service) ConfirmReconnect(ctx context.Context, sessionID, sourceRef, videoID string) (*domain.Video, error) {
	b, err := s.liveBatch(sessionID)
	if err != nil {
		return nil, err
	}

	p, ok := b.takeReconnect(sourceRef)
	if !ok {
		return nil, apperrors.NotFoundf("no reconnect candidate for %q", sourceRef)
	}

	record, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		b.restoreReconnect(p)
		return nil, apperrors.NotFoundf("record %q not found", videoID)
	}

	c := p.candidate
	record.ReplaceFiles(domain.VideoFile{
		Ref:       c.SourceRef,
		TreeRef:   c.TreeRef,
		Filename:  c.RawName,
		SizeBytes: c.SizeBytes,
	})
	if record.DurationSeconds == 0 {
		record.DurationSeconds = c.DurationSeconds
	}
	if record.SizeBytes == 0 {
		record.SizeBytes = c.SizeBytes
	}

	if err := s.store.UpdateVideo(ctx, record); err != nil {
		b.restoreReconnect(p)
		return nil, apperrors.Internal("update reconnected record").WithCause(err)
	}

	b.markDone(1)
	s.afterCommit(ctx, b, c.SourceRef)
	s.finishIfEmpty(ctx, b)

	s.logger.Info("file reconnected to existing record",
		"session_id", sessionID,
		"video_id", videoID,
		"source_ref", sourceRef,
	)

	return record, nil
}

// RejectReconnect declines all reconnect suggestions for a file and moves
// it into the async search queue instead.
func (s *Service) RejectReconnect(ctx context.Context, sessionID, sourceRef string) error {
	b, err := s.liveBatch(sessionID)
	if err != nil {
		return err
	}

	p, ok := b.takeReconnect(sourceRef)
	if !ok {
		return apperrors.NotFoundf("no reconnect candidate for %q", sourceRef)
	}

	d := domain.NewDecision(p.candidate)
	snap := *d
	b.mu.Lock()
	b.decisions = append(b.decisions, d)
	b.mu.Unlock()

	s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))
	s.startRunner(b)
	return nil
}

// Progress returns {done, total} for a session, falling back to the
// persisted snapshot when the batch is not in memory.
func (s *Service) Progress(ctx context.Context, sessionID string) domain.Progress {
	s.batchMu.RLock()
	b, ok := s.batches[sessionID]
	s.batchMu.RUnlock()
	if ok {
		return b.progress()
	}
	return s.store.GetProgress(ctx, sessionID)
}

// PendingDecisions returns the open decisions and reconnect suggestions
// for a session, rebuilding a read-only view from the persisted entries
// when the batch is not in memory.
func (s *Service) PendingDecisions(ctx context.Context, sessionID string) ([]*domain.Decision, []ReconnectSuggestion) {
	s.batchMu.RLock()
	b, ok := s.batches[sessionID]
	s.batchMu.RUnlock()
	if ok {
		return b.snapshot(), b.reconnectSnapshot()
	}

	entries := s.store.LoadSession(ctx, sessionID)
	decisions := make([]*domain.Decision, 0, len(entries))
	for i := range entries {
		d := domain.NewDecision(entries[i].Candidate())
		if d.Candidate.Match != nil {
			d.MarkFound(d.Candidate.Match)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// Cancel stops a session's search loop. Already-committed decisions stay
// committed; unsearched items remain persisted for a later resume.
func (s *Service) Cancel(sessionID string) error {
	s.batchMu.RLock()
	b, ok := s.batches[sessionID]
	s.batchMu.RUnlock()
	if !ok {
		return apperrors.NotFoundf("session %q not found", sessionID)
	}

	b.alive.Store(false)
	s.emitter.Emit(sse.NewCancelledEvent(sessionID))

	s.logger.Info("reconciliation batch cancelled", "session_id", sessionID)
	return nil
}

// ResumePending resumes the session named by the open-on-next-foreground
// pointer, if any. Returns the resumed session ID, or empty when there was
// nothing to resume.
func (s *Service) ResumePending(ctx context.Context) (string, error) {
	sessionID, err := s.store.PendingSession(ctx)
	if err != nil {
		return "", apperrors.Internal("read pending session pointer").WithCause(err)
	}
	if sessionID == "" {
		return "", nil
	}

	entries := s.store.LoadSession(ctx, sessionID)
	if len(entries) == 0 {
		// Nothing to resume; corrupt or already-drained sessions read as empty.
		if err := s.store.ClearSession(ctx, sessionID); err != nil {
			s.logger.Warn("failed to clear stale session", "session_id", sessionID, "error", err)
		}
		return "", nil
	}

	s.batchMu.Lock()
	if _, exists := s.batches[sessionID]; exists {
		s.batchMu.Unlock()
		return sessionID, nil
	}
	b := newBatch(sessionID)
	s.batches[sessionID] = b
	s.batchMu.Unlock()

	// Carry forward the persisted done counter so the indicator does not
	// restart from zero after a crash.
	persisted := s.store.GetProgress(ctx, sessionID)
	b.mu.Lock()
	b.done = persisted.Done
	b.total = persisted.Done
	b.mu.Unlock()

	candidates := make([]domain.LocalCandidate, 0, len(entries))
	for i := range entries {
		candidates = append(candidates, entries[i].Candidate())
	}
	s.intake(ctx, b, candidates)
	s.startRunner(b)

	s.logger.Info("resumed reconciliation batch",
		"session_id", sessionID,
		"entries", len(entries),
	)

	return sessionID, nil
}

// liveBatch returns the in-memory batch for a session.
func (s *Service) liveBatch(sessionID string) (*batch, error) {
	s.batchMu.RLock()
	defer s.batchMu.RUnlock()
	b, ok := s.batches[sessionID]
	if !ok {
		return nil, apperrors.NotFoundf("session %q not found", sessionID)
	}
	return b, nil
}

// persistSession writes the minimal entry tuples for all open work.
func (s *Service) persistSession(ctx context.Context, b *batch) error {
	b.mu.Lock()
	entries := make([]domain.SessionEntry, 0, len(b.decisions)+len(b.reconnects))
	for _, d := range b.decisions {
		entries = append(entries, domain.EntryFromCandidate(&d.Candidate))
	}
	for _, p := range b.reconnects {
		c := p.candidate
		entries = append(entries, domain.EntryFromCandidate(&c))
	}
	b.mu.Unlock()

	if err := s.store.SaveSession(ctx, b.id, entries); err != nil {
		return apperrors.Internal("persist session").WithCause(err)
	}
	return nil
}

// afterCommit prunes the durable session after one item resolved and
// pushes fresh progress to subscribers.
func (s *Service) afterCommit(ctx context.Context, b *batch, sourceRef string) {
	if err := s.store.RemoveSessionEntries(ctx, b.id, []string{sourceRef}); err != nil {
		s.logger.Warn("failed to prune session entry",
			"session_id", b.id,
			"source_ref", sourceRef,
			"error", err,
		)
	}
	s.saveProgress(ctx, b)
}

func (s *Service) saveProgress(ctx context.Context, b *batch) {
	p := b.progress()
	if err := s.store.SaveProgress(ctx, b.id, p); err != nil {
		s.logger.Warn("failed to save progress snapshot",
			"session_id", b.id,
			"error", err,
		)
	}
	s.emitter.Emit(sse.NewProgressEvent(b.id, p.Done, p.Total))
}
