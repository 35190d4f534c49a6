package match

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
	"github.com/reelkeeperapp/reelkeeper-server/internal/normalize"
)

// Scoring thresholds. Duration tolerance is tight because remote duration
// metadata is reliable when present; title similarity carries the match when
// duration is unknown, so its bar is higher there.
const (
	minQueryLength        = 4
	authorGate            = 0.80
	titleGateWithDuration = 0.85
	titleGateNoDuration   = 0.92
	maxDurationDiff       = 5 // seconds
)

// RemoteRecord is one result from the external metadata search capability.
type RemoteRecord struct {
	ID              string
	URL             string
	Title           string
	Author          string
	ThumbnailURL    string
	Website         string
	DurationSeconds int64
}

// Searcher is the narrow query interface onto the external metadata index.
// Implementations are best-effort: they may return empty but must not block
// indefinitely; the finder applies its own bound via ctx.
type Searcher interface {
	Search(ctx context.Context, query string) ([]RemoteRecord, error)
}

// Finder ranks remote search results against a local filename.
type Finder struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewFinder creates a match finder over the given search capability.
func NewFinder(searcher Searcher, logger *slog.Logger) *Finder {
	return &Finder{
		searcher: searcher,
		logger:   logger,
	}
}

// FindMatch returns the best remote record for a local title, or nil when no
// result clears the gates. Search failures degrade to "no match"; the engine
// always has a manual fallback, so no error is returned.
//
// The exact-title path short-circuits before any duration check so that
// scan-and-prompt loops can auto-apply unambiguous files without user input.
func (f *Finder) FindMatch(ctx context.Context, title string, durationSeconds int64) *domain.MatchResult {
	query, authorHint := normalize.SplitTitleAuthor(title)
	normQuery := normalize.Title(query)

	results, err := f.searcher.Search(ctx, query)
	if err != nil {
		f.logger.Warn("metadata search failed, treating as no match",
			"query", query,
			"error", err,
		)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	// Exact-path: the top-ranked result's normalized title equals the query.
	// Accepted immediately, independent of duration.
	if normQuery != "" && normQuery == normalize.Title(results[0].Title) {
		return toMatchResult(&results[0], 1, durationDiff(results[0].DurationSeconds, durationSeconds), true)
	}

	// Too short to score reliably.
	if utf8.RuneCountInString(normQuery) < minQueryLength {
		return nil
	}

	normHint := normalize.Title(authorHint)
	durationKnown := durationSeconds > 0

	var best *domain.MatchResult
	var bestScore float64

	for i := range results {
		r := &results[i]

		sim := Similarity(normQuery, normalize.Title(r.Title))

		// Author mismatch is a hard gate, not a soft penalty.
		if normHint != "" && Similarity(normHint, normalize.Title(r.Author)) < authorGate {
			continue
		}

		diff := durationDiff(r.DurationSeconds, durationSeconds)

		if durationKnown {
			if diff < 0 || diff > maxDurationDiff || sim < titleGateWithDuration {
				continue
			}
		} else if sim < titleGateNoDuration {
			continue
		}

		score := sim
		if diff >= 0 {
			score -= float64(diff) / 60
		}

		if best == nil || score > bestScore {
			best = toMatchResult(r, sim, diff, false)
			bestScore = score
		}
	}

	return best
}

// durationDiff returns the absolute duration gap in seconds, or -1 when
// either duration is unknown.
func durationDiff(remote, local int64) int64 {
	if remote <= 0 || local <= 0 {
		return -1
	}
	diff := remote - local
	if diff < 0 {
		diff = -diff
	}
	return diff
}

func toMatchResult(r *RemoteRecord, similarity float64, diff int64, exact bool) *domain.MatchResult {
	return &domain.MatchResult{
		RemoteID:            r.ID,
		URL:                 r.URL,
		Title:               r.Title,
		Author:              r.Author,
		ThumbnailURL:        r.ThumbnailURL,
		Website:             r.Website,
		DurationSeconds:     r.DurationSeconds,
		TitleSimilarity:     similarity,
		DurationDiffSeconds: diff,
		ExactTitleMatch:     exact,
	}
}
