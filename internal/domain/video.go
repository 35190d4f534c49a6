// Package domain contains the core business entities and domain logic for the ReelKeeper video library.
package domain

import (
	"time"
)

// Video source provenance values.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Video represents one video record in the library.
type Video struct {
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Author          string      `json:"author,omitempty"`
	Artist          string      `json:"artist,omitempty"`
	SourceURL       string      `json:"source_url,omitempty"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	Website         string      `json:"website,omitempty"`
	Source          string      `json:"source"`
	Files           []VideoFile `json:"files"`
	DurationSeconds int64       `json:"duration_seconds,omitempty"`
	SizeBytes       int64       `json:"size_bytes,omitempty"`
}

// VideoFile represents one file backing a video record.
type VideoFile struct {
	// Ref is the opaque file locator (path or URI form).
	Ref string `json:"ref"`
	// TreeRef is the containing folder grant, when the file came from a
	// folder import. Empty for directly picked files.
	TreeRef   string `json:"tree_ref,omitempty"`
	Filename  string `json:"filename,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Missing   bool   `json:"missing,omitempty"`
}

// IdentityKey returns the canonical duplicate-detection key for this record:
// the source URL when present, otherwise the first file's reference.
func (v *Video) IdentityKey() string {
	if v.SourceURL != "" {
		return v.SourceURL
	}
	if len(v.Files) > 0 {
		return v.Files[0].Ref
	}
	return ""
}

// IdentityKeys returns every duplicate-detection key this record answers
// to: the source URL plus each backing file's reference and, for folder
// imports, the file's container-relative key. A re-imported file must
// resolve to its record even when the record's canonical identity is a
// match URL.
func (v *Video) IdentityKeys() []string {
	seen := make(map[string]bool, 1+2*len(v.Files))
	keys := make([]string, 0, 1+2*len(v.Files))
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	add(v.SourceURL)
	for i := range v.Files {
		add(v.Files[i].Ref)
		if v.Files[i].TreeRef != "" {
			add(v.Files[i].TreeRef + "/" + v.Files[i].Filename)
		}
	}
	return keys
}

// AllFilesMissing reports whether every known backing file is flagged missing.
// Records in this state are reconnect candidates.
func (v *Video) AllFilesMissing() bool {
	if len(v.Files) == 0 {
		return false
	}
	for i := range v.Files {
		if !v.Files[i].Missing {
			return false
		}
	}
	return true
}

// ReplaceFiles swaps the record's backing files for a single reconnected file
// and clears the missing flag.
func (v *Video) ReplaceFiles(file VideoFile) {
	file.Missing = false
	v.Files = []VideoFile{file}
	if file.SizeBytes > 0 {
		v.SizeBytes = file.SizeBytes
	}
	v.UpdatedAt = time.Now()
}
