package domain

import (
	"path/filepath"
	"strings"
)

// SearchStatus tracks the automated match search for one candidate.
type SearchStatus string

// Search statuses.
const (
	StatusSearching SearchStatus = "searching"
	StatusFound     SearchStatus = "found"
	StatusNotFound  SearchStatus = "not_found"
)

// Choice is the user's (or the exact-match shortcut's) resolution for one candidate.
type Choice string

// Choices.
const (
	ChoiceUnset    Choice = "unset"
	ChoiceUseMatch Choice = "use_match"
	ChoiceManual   Choice = "manual"
)

// LocalCandidate is one file discovered for import. The engine never deletes
// the original file; a rename is the only mutation it may apply, and only
// when explicitly allowed.
type LocalCandidate struct {
	// SourceRef is the opaque file locator the caller provided.
	SourceRef string `json:"source_ref"`
	// TreeRef is the containing folder grant for folder imports, empty otherwise.
	TreeRef         string       `json:"tree_ref,omitempty"`
	RawName         string       `json:"raw_name"`
	DerivedTitle    string       `json:"derived_title"`
	Extension       string       `json:"extension,omitempty"`
	SizeBytes       int64        `json:"size_bytes,omitempty"`
	DurationSeconds int64        `json:"duration_seconds,omitempty"`
	Match           *MatchResult `json:"match,omitempty"`
}

// NewLocalCandidate builds a candidate from a raw filename, deriving the
// title (name minus extension) and extension.
func NewLocalCandidate(sourceRef, treeRef, rawName string, sizeBytes, durationSeconds int64) LocalCandidate {
	ext := strings.TrimPrefix(filepath.Ext(rawName), ".")
	title := strings.TrimSuffix(rawName, filepath.Ext(rawName))

	return LocalCandidate{
		SourceRef:       sourceRef,
		TreeRef:         treeRef,
		RawName:         rawName,
		DerivedTitle:    title,
		Extension:       ext,
		SizeBytes:       sizeBytes,
		DurationSeconds: durationSeconds,
	}
}

// IdentityKey is the stable identity used for duplicate checks: the
// container-relative key for folder imports, the direct reference otherwise.
func (c *LocalCandidate) IdentityKey() string {
	if c.TreeRef != "" {
		return c.TreeRef + "/" + c.RawName
	}
	return c.SourceRef
}

// MatchResult is a remote metadata record scored against a local candidate.
type MatchResult struct {
	RemoteID        string  `json:"remote_id"`
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Author          string  `json:"author,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Website         string  `json:"website,omitempty"`
	DurationSeconds int64   `json:"duration_seconds,omitempty"`
	TitleSimilarity float64 `json:"title_similarity"`
	// DurationDiffSeconds is the absolute duration gap to the probe file,
	// or -1 when either duration is unknown.
	DurationDiffSeconds int64 `json:"duration_diff_seconds"`
	ExactTitleMatch     bool  `json:"exact_title_match"`
}

// DurationKnown reports whether the duration gap could be computed.
func (m *MatchResult) DurationKnown() bool {
	return m.DurationDiffSeconds >= 0
}

// ManualMetadata is user-entered metadata for a candidate with no usable match.
type ManualMetadata struct {
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Artist          string `json:"artist,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Website         string `json:"website,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
}

// Decision is the per-file unit of matching state and user choice.
//
// Invariant: Choice == ChoiceUseMatch requires a match or manual override to
// exist. Mutation goes through the methods below so the invariant holds by
// construction rather than scattered runtime checks.
type Decision struct {
	Candidate LocalCandidate  `json:"candidate"`
	Status    SearchStatus    `json:"status"`
	Choice    Choice          `json:"choice"`
	Manual    *ManualMetadata `json:"manual,omitempty"`
}

// NewDecision creates a Decision in its initial state: search pending, no choice.
func NewDecision(candidate LocalCandidate) *Decision {
	return &Decision{
		Candidate: candidate,
		Status:    StatusSearching,
		Choice:    ChoiceUnset,
	}
}

// MarkFound records a completed search with a usable match.
func (d *Decision) MarkFound(match *MatchResult) {
	d.Candidate.Match = match
	d.Status = StatusFound
}

// MarkNotFound records a completed search without a match. If the user has
// not chosen yet, manual entry is pre-selected: no match ever means metadata
// must be provided by hand unless the item is skipped.
func (d *Decision) MarkNotFound() {
	d.Status = StatusNotFound
	if d.Choice == ChoiceUnset {
		d.Choice = ChoiceManual
	}
}

// ChooseMatch selects the automated match. Returns false when there is
// nothing to use, leaving the Decision unchanged.
func (d *Decision) ChooseMatch() bool {
	if d.Candidate.Match == nil && d.Manual == nil {
		return false
	}
	d.Choice = ChoiceUseMatch
	return true
}

// ChooseManual selects user-entered metadata.
func (d *Decision) ChooseManual(meta ManualMetadata) {
	d.Manual = &meta
	d.Choice = ChoiceManual
}

// Skip clears any choice; the item will count as skipped when applied.
func (d *Decision) Skip() {
	d.Choice = ChoiceUnset
}

// Decided reports whether the Decision carries an actionable choice.
func (d *Decision) Decided() bool {
	return d.Choice != ChoiceUnset
}
