package invidious

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
)

// Search queries the instance catalog for videos matching the query string.
// Channel and playlist hits are filtered out.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if query == "" {
		return nil, wrapError("search", c.baseURL.Host, query, ErrBadRequest)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("sort_by", "relevance")

	body, err := c.doRequest(ctx, "/api/v1/search", params)
	if err != nil {
		return nil, wrapError("search", c.baseURL.Host, query, err)
	}

	var items []rawSearchItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, wrapError("search", c.baseURL.Host, query, fmt.Errorf("parse response: %w", err))
	}

	results := make([]SearchResult, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.Type != "" && item.Type != "video" {
			continue
		}
		if item.VideoID == "" {
			continue
		}

		results = append(results, SearchResult{
			VideoID:         item.VideoID,
			Title:           item.Title,
			Author:          item.Author,
			AuthorURL:       item.AuthorURL,
			SourceURL:       watchURL(item.VideoID),
			ThumbnailURL:    selectThumbnailURL(item.Thumbnails),
			DurationSeconds: item.LengthSeconds,
			Published:       item.Published,
			ViewCount:       item.ViewCount,
		})
		if len(results) >= maxResults {
			break
		}
	}

	return results, nil
}

// watchURL builds the canonical upstream watch URL for a video ID.
// Records keep the upstream URL rather than an instance-relative one so
// identity survives switching instances.
func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
