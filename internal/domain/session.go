package domain

import "time"

// Session is a durable, resumable batch of pending reconciliation work.
// Entries hold the minimal data needed to rebuild Decisions after the hosting
// process is killed, without re-deriving filesystem metadata.
type Session struct {
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ID        string         `json:"id"`
	Entries   []SessionEntry `json:"entries"`
}

// SessionEntry is the durable projection of one pending Decision.
type SessionEntry struct {
	SourceRef       string       `json:"source_ref"`
	TreeRef         string       `json:"tree_ref,omitempty"`
	RawName         string       `json:"raw_name"`
	DerivedTitle    string       `json:"derived_title"`
	Extension       string       `json:"extension,omitempty"`
	SizeBytes       int64        `json:"size_bytes,omitempty"`
	DurationSeconds int64        `json:"duration_seconds,omitempty"`
	Match           *MatchResult `json:"match,omitempty"`
}

// EntryFromCandidate projects a candidate into its durable form.
func EntryFromCandidate(c *LocalCandidate) SessionEntry {
	return SessionEntry{
		SourceRef:       c.SourceRef,
		TreeRef:         c.TreeRef,
		RawName:         c.RawName,
		DerivedTitle:    c.DerivedTitle,
		Extension:       c.Extension,
		SizeBytes:       c.SizeBytes,
		DurationSeconds: c.DurationSeconds,
		Match:           c.Match,
	}
}

// Candidate rebuilds the in-memory candidate from a durable entry.
func (e *SessionEntry) Candidate() LocalCandidate {
	return LocalCandidate{
		SourceRef:       e.SourceRef,
		TreeRef:         e.TreeRef,
		RawName:         e.RawName,
		DerivedTitle:    e.DerivedTitle,
		Extension:       e.Extension,
		SizeBytes:       e.SizeBytes,
		DurationSeconds: e.DurationSeconds,
		Match:           e.Match,
	}
}

// Progress is the lightweight {done, total} snapshot persisted alongside a
// session so an indicator can be redrawn immediately after restart.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ReconnectCandidate is an existing library record scored as the possible
// true owner of a newly seen file.
type ReconnectCandidate struct {
	Record     *Video  `json:"record"`
	Score      float64 `json:"score"`
	SizeOK     bool    `json:"size_ok"`
	DurationOK bool    `json:"duration_ok"`
	TitleOK    bool    `json:"title_ok"`
}
