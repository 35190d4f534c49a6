package invidious

// SearchResult is one video from a catalog search, normalized for callers.
type SearchResult struct {
	VideoID         string
	Title           string
	Author          string
	AuthorURL       string
	SourceURL       string // canonical watch URL on the instance's upstream
	ThumbnailURL    string
	DurationSeconds int64
	Published       int64 // unix seconds, zero when the instance omits it
	ViewCount       int64
}

// rawSearchItem mirrors one element of the /api/v1/search response.
// The endpoint mixes videos, channels and playlists; Type discriminates.
type rawSearchItem struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	VideoID       string         `json:"videoId"`
	Author        string         `json:"author"`
	AuthorURL     string         `json:"authorUrl"`
	LengthSeconds int64          `json:"lengthSeconds"`
	Published     int64          `json:"published"`
	ViewCount     int64          `json:"viewCount"`
	Thumbnails    []rawThumbnail `json:"videoThumbnails"`
}

type rawThumbnail struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// selectThumbnailURL picks the largest thumbnail on offer.
func selectThumbnailURL(thumbs []rawThumbnail) string {
	best := ""
	bestWidth := -1
	for _, t := range thumbs {
		if t.URL == "" {
			continue
		}
		if t.Width > bestWidth {
			best = t.URL
			bestWidth = t.Width
		}
	}
	return best
}
