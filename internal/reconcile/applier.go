package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	apperrors "github.com/reelkeeperapp/reelkeeper-server/internal/errors"
	"github.com/reelkeeperapp/reelkeeper-server/internal/files"
	"github.com/reelkeeperapp/reelkeeper-server/internal/id"
	"github.com/reelkeeperapp/reelkeeper-server/internal/sse"
	"github.com/reelkeeperapp/reelkeeper-server/internal/store"
)

// ResolutionAction names what the caller decided for one file.
type ResolutionAction string

// Resolution actions.
const (
	ActionUseMatch ResolutionAction = "use_match"
	ActionManual   ResolutionAction = "manual"
	ActionSkip     ResolutionAction = "skip"
)

// Resolution is one caller decision to apply.
type Resolution struct {
	SourceRef string                 `json:"source_ref"`
	Action    ResolutionAction       `json:"action"`
	Manual    *domain.ManualMetadata `json:"manual,omitempty"`
}

// ResolveResult aggregates one Resolve call.
type ResolveResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Resolve applies a set of caller decisions to a session. Safe to call
// repeatedly and incrementally; each item commits independently and
// per-item failures only grow the skip count.
func (s *Service) Resolve(ctx context.Context, sessionID string, resolutions []Resolution) (*ResolveResult, error) {
	b, err := s.liveBatch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{}

	for _, r := range resolutions {
		d := b.findDecision(r.SourceRef)
		if d == nil {
			result.Skipped++
			continue
		}

		switch r.Action {
		case ActionUseMatch:
			chosen := false
			b.updateDecision(d, func(d *domain.Decision) { chosen = d.ChooseMatch() })
			if !chosen {
				result.Skipped++
				continue
			}
		case ActionManual:
			if r.Manual == nil {
				// Manual without metadata cannot be committed; the
				// decision stays pending until metadata arrives.
				result.Skipped++
				continue
			}
			b.updateDecision(d, func(d *domain.Decision) { d.ChooseManual(*r.Manual) })
		case ActionSkip:
			b.updateDecision(d, func(d *domain.Decision) { d.Skip() })
			s.discardOne(ctx, b, d)
			result.Skipped++
			continue
		default:
			result.Skipped++
			continue
		}

		added, skipped := s.applyOne(ctx, b, d)
		result.Added += added
		result.Skipped += skipped
	}

	s.finishIfEmpty(ctx, b)

	return result, nil
}

// discardOne removes a skipped decision without writing a record.
func (s *Service) discardOne(ctx context.Context, b *batch, d *domain.Decision) {
	snap := b.updateDecision(d, nil)
	b.removeDecision(d)
	b.recordApply(0, 1)
	s.afterCommit(ctx, b, snap.Candidate.SourceRef)
	s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))
}

// applyOne commits a single decided decision: identity dedupe, optional
// rename, and the record write, all as one atomic unit from the caller's
// point of view. Returns (added, skipped) for this item.
func (s *Service) applyOne(ctx context.Context, b *batch, d *domain.Decision) (int, int) {
	// The search loop may still be writing to other decisions in the
	// batch; this one is decided, but all reads go through a locked copy.
	snap := b.updateDecision(d, nil)
	if !snap.Decided() {
		return 0, 1
	}

	video, err := s.buildRecord(&snap)
	if err != nil {
		if !errors.Is(err, apperrors.ErrValidation) {
			s.logger.Warn("failed to build record for decision",
				"session_id", b.id,
				"source_ref", snap.Candidate.SourceRef,
				"error", err,
			)
		}
		// Manual choice without metadata, or nothing usable; the item
		// counts as skipped and the decision is consumed.
		b.removeDecision(d)
		b.recordApply(0, 1)
		s.afterCommit(ctx, b, snap.Candidate.SourceRef)
		return 0, 1
	}

	// Identity-check-then-write is serialized across the whole service so
	// concurrent applies cannot race the same identity to two records.
	// Every key the new record answers to is checked: a manual resolution
	// with a different source URL must still collide on the file ref.
	s.identityMu.Lock()
	var existing *domain.Video
	for _, identity := range video.IdentityKeys() {
		if found, err := s.store.GetVideoByIdentity(ctx, identity); err == nil && found != nil {
			existing = found
			break
		}
	}
	if existing != nil {
		s.identityMu.Unlock()
		b.removeDecision(d)
		b.recordApply(0, 1)
		s.afterCommit(ctx, b, snap.Candidate.SourceRef)
		s.logger.Debug("duplicate identity at apply time",
			"session_id", b.id,
			"identity", video.IdentityKey(),
		)
		return 0, 1
	}

	s.maybeRename(ctx, &snap, video)

	err = s.store.CreateVideo(ctx, video)
	s.identityMu.Unlock()

	if err != nil {
		if errors.Is(err, store.ErrVideoExists) {
			b.removeDecision(d)
			b.recordApply(0, 1)
			s.afterCommit(ctx, b, snap.Candidate.SourceRef)
			return 0, 1
		}
		// Storage failure: keep the decision pending so the caller can
		// retry; nothing was written.
		s.logger.Error("failed to commit record",
			"session_id", b.id,
			"source_ref", snap.Candidate.SourceRef,
			"error", err,
		)
		return 0, 0
	}

	b.removeDecision(d)
	b.recordApply(1, 0)
	s.afterCommit(ctx, b, snap.Candidate.SourceRef)
	s.emitter.Emit(sse.NewDecisionEvent(b.id, &snap))

	s.logger.Info("record committed",
		"session_id", b.id,
		"video_id", video.ID,
		"title", video.Title,
		"source", video.Source,
	)

	return 1, 0
}

// buildRecord assembles the library record for a decided decision.
// Returns a validation error when the decision carries nothing usable.
func (s *Service) buildRecord(d *domain.Decision) (*domain.Video, error) {
	c := &d.Candidate

	file := domain.VideoFile{
		Ref:       c.SourceRef,
		TreeRef:   c.TreeRef,
		Filename:  c.RawName,
		SizeBytes: c.SizeBytes,
	}

	videoID, err := id.Generate(id.PrefixVideo)
	if err != nil {
		return nil, apperrors.Internal("generate record id").WithCause(err)
	}

	// A user-edited match suggestion takes the manual path, seeded from
	// the override.
	if d.Choice == domain.ChoiceManual || d.Manual != nil {
		meta := d.Manual
		if meta == nil {
			return nil, apperrors.Validation("manual choice without metadata")
		}

		duration := meta.DurationSeconds
		if duration == 0 {
			duration = c.DurationSeconds
		}

		return &domain.Video{
			ID:              videoID,
			Title:           meta.Title,
			Author:          meta.Author,
			Artist:          meta.Artist,
			SourceURL:       meta.SourceURL,
			ThumbnailURL:    meta.ThumbnailURL,
			Website:         meta.Website,
			Source:          domain.SourceLocal,
			DurationSeconds: duration,
			SizeBytes:       c.SizeBytes,
			Files:           []domain.VideoFile{file},
		}, nil
	}

	m := c.Match
	if m == nil {
		return nil, apperrors.Validation("use_match choice without match")
	}

	duration := m.DurationSeconds
	if duration == 0 {
		duration = c.DurationSeconds
	}

	return &domain.Video{
		ID:              videoID,
		Title:           m.Title,
		Author:          m.Author,
		SourceURL:       m.URL,
		ThumbnailURL:    m.ThumbnailURL,
		Website:         m.Website,
		Source:          domain.SourceRemote,
		DurationSeconds: duration,
		SizeBytes:       c.SizeBytes,
		Files:           []domain.VideoFile{file},
	}, nil
}

// maybeRename renames the underlying file to "{author} - {title}.{ext}"
// when renames are enabled. Failure is non-fatal: the record keeps the
// original reference.
func (s *Service) maybeRename(ctx context.Context, d *domain.Decision, video *domain.Video) {
	if !s.opts.AllowRename || s.files == nil {
		return
	}
	if d.Candidate.Extension == "" {
		return
	}

	base := video.Title
	if video.Author != "" {
		base = video.Author + " - " + video.Title
	}
	newName := files.SanitizeName(base)
	if newName == "" {
		return
	}
	newName = fmt.Sprintf("%s.%s", newName, d.Candidate.Extension)
	if newName == d.Candidate.RawName {
		return
	}

	newRef, err := s.files.Rename(video.Files[0].Ref, newName)
	if err != nil {
		s.logger.Warn("rename failed, keeping original reference",
			"source_ref", video.Files[0].Ref,
			"new_name", newName,
			"error", err,
		)
		return
	}

	video.Files[0].Ref = newRef
	video.Files[0].Filename = newName
}
