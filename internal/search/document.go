// Package search provides full-text search over the video library using
// Bleve. It backs the local library search endpoint and keeps itself in
// sync with the store through the indexer hook on record commits.
package search

import (
	"github.com/reelkeeperapp/reelkeeper-server/internal/domain"
)

// VideoDocument is the Bleve document shape for one library record.
type VideoDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Artist          string `json:"artist,omitempty"`
	Website         string `json:"website,omitempty"`
	Source          string `json:"source"`
	SourceURL       string `json:"source_url,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	Missing         bool   `json:"missing"`
	CreatedAt       int64  `json:"created_at"` // Unix millis
	UpdatedAt       int64  `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve uses Go struct field names by default, but the index mapping is
// declared with lowercase names, so convert explicitly.
func (d *VideoDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"source":     d.Source,
		"missing":    d.Missing,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Artist != "" {
		m["artist"] = d.Artist
	}
	if d.Website != "" {
		m["website"] = d.Website
	}
	if d.SourceURL != "" {
		m["source_url"] = d.SourceURL
	}
	if d.DurationSeconds > 0 {
		m["duration_seconds"] = d.DurationSeconds
	}

	return m
}

// VideoToDocument converts a library record to its index document.
func VideoToDocument(video *domain.Video) *VideoDocument {
	return &VideoDocument{
		ID:              video.ID,
		Title:           video.Title,
		Author:          video.Author,
		Artist:          video.Artist,
		Website:         video.Website,
		Source:          video.Source,
		SourceURL:       video.SourceURL,
		DurationSeconds: video.DurationSeconds,
		Missing:         video.AllFilesMissing(),
		CreatedAt:       video.CreatedAt.UnixMilli(),
		UpdatedAt:       video.UpdatedAt.UnixMilli(),
	}
}
