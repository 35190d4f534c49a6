// Package reconnect re-associates library records whose backing files went
// missing with files newly seen on disk. All three gates (size, duration,
// title) must pass; tolerance on size and duration alone is not enough, which
// avoids false reconnects between two files that merely share a duration
// bucket. Reconnection is always confirmed by a human, never silently applied.
package reconnect

import (
	"log/slog"
	"sort"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
	"github.com/reelkeeperapp/reelkeeper-server/internal/normalize"
)

const (
	// maxCandidates bounds the ranked list surfaced to the user.
	maxCandidates = 6

	sizeTolerancePct     = 0.05
	durationToleranceSec = 10
	titleGate            = 0.45

	// scoreBase keeps every accepted reconnect candidate above any match
	// finder score so reconnects win priority ordering when both pipelines
	// are consulted.
	scoreBase       = 5.5
	titleScoreScale = 2
)

// Finder scores "file missing" records against newly seen files.
type Finder struct {
	logger *slog.Logger
}

// NewFinder creates a reconnect finder.
func NewFinder(logger *slog.Logger) *Finder {
	return &Finder{logger: logger}
}

// FindCandidates returns missing-file records that could own the probe file,
// ranked by score descending, truncated to 6. Without a non-empty title, a
// real size, and a real duration the probe is too weak to reconnect safely
// and the result is empty.
func (f *Finder) FindCandidates(missing []*domain.Video, title string, sizeBytes, durationSeconds int64) []domain.ReconnectCandidate {
	normTitle := normalize.Title(title)
	if normTitle == "" || sizeBytes <= 0 || durationSeconds <= 0 {
		return nil
	}

	var candidates []domain.ReconnectCandidate

	for _, record := range missing {
		c := f.score(record, normTitle, sizeBytes, durationSeconds)
		if c.SizeOK && c.DurationOK && c.TitleOK {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	if len(candidates) > 0 {
		f.logger.Debug("reconnect candidates found",
			"title", title,
			"count", len(candidates),
		)
	}

	return candidates
}

func (f *Finder) score(record *domain.Video, normTitle string, sizeBytes, durationSeconds int64) domain.ReconnectCandidate {
	c := domain.ReconnectCandidate{Record: record}

	if record.SizeBytes > 0 {
		tolerance := int64(float64(sizeBytes) * sizeTolerancePct)
		if tolerance < 1 {
			tolerance = 1
		}
		c.SizeOK = abs(record.SizeBytes-sizeBytes) <= tolerance
	}

	if record.DurationSeconds > 0 {
		c.DurationOK = abs(record.DurationSeconds-durationSeconds) <= durationToleranceSec
	}

	// Fall back to the source URL when a record has no title at all.
	recordTitle := record.Title
	if recordTitle == "" {
		recordTitle = record.SourceURL
	}
	titleScore := match.Similarity(normTitle, normalize.Title(recordTitle))
	c.TitleOK = titleScore >= titleGate
	c.Score = scoreBase + titleScoreScale*titleScore

	return c
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
