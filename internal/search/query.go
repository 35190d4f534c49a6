package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a library search query.
type Params struct {
	Query string // User's search query

	// Filters
	Source      string // "local" or "remote" provenance, empty = all
	MissingOnly bool   // Only records whose files are all absent
	MinDuration int64  // Minimum duration in seconds
	MaxDuration int64  // Maximum duration in seconds

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "author", "recent", "duration"
	SortOrder string // "asc", "desc"

	Highlight bool
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit represents a single search result.
type Hit struct {
	ID              string            `json:"id"`
	Score           float64           `json:"score"`
	Title           string            `json:"title"`
	Author          string            `json:"author,omitempty"`
	Artist          string            `json:"artist,omitempty"`
	Source          string            `json:"source,omitempty"`
	SourceURL       string            `json:"source_url,omitempty"`
	Website         string            `json:"website,omitempty"`
	DurationSeconds int64             `json:"duration_seconds,omitempty"`
	Missing         bool              `json:"missing,omitempty"`
	Highlights      map[string]string `json:"highlights,omitempty"`
}

// Search executes a library search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{
		"id", "title", "author", "artist", "source",
		"source_url", "website", "duration_seconds", "missing",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if v, ok := hit.Fields["author"].(string); ok {
			h.Author = v
		}
		if v, ok := hit.Fields["artist"].(string); ok {
			h.Artist = v
		}
		if v, ok := hit.Fields["source"].(string); ok {
			h.Source = v
		}
		if v, ok := hit.Fields["source_url"].(string); ok {
			h.SourceURL = v
		}
		if v, ok := hit.Fields["website"].(string); ok {
			h.Website = v
		}
		if v, ok := hit.Fields["duration_seconds"].(float64); ok {
			h.DurationSeconds = int64(v)
		}
		if v, ok := hit.Fields["missing"].(bool); ok {
			h.Missing = v
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		// Title match with highest boost.
		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		// Channel/uploader match.
		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)
		textQueries = append(textQueries, authorMatch)

		// Fuzzy match for typo tolerance on titles.
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for incremental typing (minimum 2 chars).
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Source != "" {
		sq := bleve.NewTermQuery(params.Source)
		sq.SetField("source")
		queries = append(queries, sq)
	}

	if params.MissingOnly {
		mq := bleve.NewBoolFieldQuery(true)
		mq.SetField("missing")
		queries = append(queries, mq)
	}

	if params.MinDuration > 0 || params.MaxDuration > 0 {
		min := float64(params.MinDuration)
		max := float64(params.MaxDuration)
		if params.MaxDuration == 0 {
			max = math.MaxFloat64
		}
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("duration_seconds")
		queries = append(queries, rangeQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title"})
		} else {
			req.SortBy([]string{"title"})
		}
	case "author":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-author", "-title"})
		} else {
			req.SortBy([]string{"author", "title"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	case "duration":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"duration_seconds"})
		} else {
			req.SortBy([]string{"-duration_seconds"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}
