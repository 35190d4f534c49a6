package invidious

import (
	"context"

	"github.com/reelkeeperapp/reelkeeper-server/internal/match"
)

// Searcher adapts the client to the match finder's query interface.
type Searcher struct {
	client *Client
}

// NewSearcher wraps a client for use as a search capability.
func NewSearcher(client *Client) *Searcher {
	return &Searcher{client: client}
}

// Search queries the instance and converts results to match records.
func (s *Searcher) Search(ctx context.Context, query string) ([]match.RemoteRecord, error) {
	results, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	records := make([]match.RemoteRecord, 0, len(results))
	for i := range results {
		r := &results[i]
		records = append(records, match.RemoteRecord{
			ID:              r.VideoID,
			URL:             r.SourceURL,
			Title:           r.Title,
			Author:          r.Author,
			ThumbnailURL:    r.ThumbnailURL,
			Website:         "youtube",
			DurationSeconds: r.DurationSeconds,
		})
	}
	return records, nil
}
