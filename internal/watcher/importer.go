package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/reconcile"
)

// Enqueuer is the slice of the reconcile service the importer drives.
type Enqueuer interface {
	Enqueue(ctx context.Context, candidates []domain.LocalCandidate) (*reconcile.EnqueueResult, error)
	Add(ctx context.Context, sessionID string, candidates []domain.LocalCandidate) ([]reconcile.CandidateOutcome, error)
}

// Importer feeds settled dropfolder files into the reconciliation
// pipeline. Files arriving while a session is open join it; otherwise a
// new session is started.
type Importer struct {
	watcher   *Watcher
	enqueuer  Enqueuer
	logger    *slog.Logger
	sessionID string
}

// NewImporter creates an importer over a watcher.
func NewImporter(w *Watcher, enqueuer Enqueuer, logger *slog.Logger) *Importer {
	return &Importer{
		watcher:  w,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Run consumes watcher events until the context is cancelled. The watcher
// itself must be started separately.
func (im *Importer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-im.watcher.Events():
			if !ok {
				return
			}
			im.importFile(ctx, event)

		case err, ok := <-im.watcher.Errors():
			if !ok {
				return
			}
			im.logger.Warn("dropfolder watch error", "error", err)
		}
	}
}

func (im *Importer) importFile(ctx context.Context, event Event) {
	candidate := domain.NewLocalCandidate(
		event.Path, "", filepath.Base(event.Path), event.Size, 0,
	)

	if im.sessionID != "" {
		outcomes, err := im.enqueuer.Add(ctx, im.sessionID, []domain.LocalCandidate{candidate})
		if err == nil {
			im.logOutcomes(im.sessionID, outcomes)
			return
		}
		if ctx.Err() != nil {
			return
		}
		// Session completed or was cancelled; fall through to a new one.
		im.logger.Debug("open session refused candidate, starting new session",
			"session_id", im.sessionID,
			"error", err,
		)
		im.sessionID = ""
	}

	result, err := im.enqueuer.Enqueue(ctx, []domain.LocalCandidate{candidate})
	if err != nil {
		im.logger.Error("failed to enqueue dropfolder file",
			"path", event.Path,
			"error", err,
		)
		return
	}

	im.sessionID = result.SessionID
	im.logOutcomes(result.SessionID, result.Outcomes)
}

func (im *Importer) logOutcomes(sessionID string, outcomes []reconcile.CandidateOutcome) {
	for _, o := range outcomes {
		im.logger.Info("dropfolder file queued for reconciliation",
			"session_id", sessionID,
			"source_ref", o.SourceRef,
			"outcome", o.Kind,
		)
	}
}
