package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/reelkeeperapp/reelkeeper-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search library",
		Description: "Full-text search over video records",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query       string `query:"q" doc:"Search query; empty matches all records"`
	Source      string `query:"source" enum:",local,remote" doc:"Filter by provenance"`
	MissingOnly bool   `query:"missing_only" doc:"Only records whose files are all absent"`
	MinDuration int64  `query:"min_duration" minimum:"0" doc:"Minimum duration in seconds"`
	MaxDuration int64  `query:"max_duration" minimum:"0" doc:"Maximum duration in seconds"`
	Limit       int    `query:"limit" minimum:"1" maximum:"100" doc:"Max results (default 20)"`
	Offset      int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	SortBy      string `query:"sort_by" enum:",relevance,title,author,recent,duration" doc:"Sort field (default relevance)"`
	SortOrder   string `query:"sort_order" enum:",asc,desc" doc:"Sort direction (default desc)"`
}

// SearchOutput wraps the search result for huma.
type SearchOutput struct {
	Body search.Result
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Source = input.Source
	params.MissingOnly = input.MissingOnly
	params.MinDuration = input.MinDuration
	params.MaxDuration = input.MaxDuration
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		params.SortOrder = input.SortOrder
	}

	result, err := s.search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "query", input.Query, "error", err)
		return nil, err
	}

	return &SearchOutput{Body: *result}, nil
}
