package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for video documents.
//
// Priorities:
//  1. Fast full-text search on titles with English stemming
//  2. Author/artist matching for channel-oriented lookups
//  3. Exact keyword matching for source and URL filters
//  4. Numeric range queries on duration
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Title is the primary search target.
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	artistFieldMapping := bleve.NewTextFieldMapping()
	artistFieldMapping.Analyzer = en.AnalyzerName
	artistFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("artist", artistFieldMapping)

	websiteFieldMapping := bleve.NewTextFieldMapping()
	websiteFieldMapping.Analyzer = keyword.Name
	websiteFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("website", websiteFieldMapping)

	// Keyword fields for exact filtering.
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	sourceFieldMapping := bleve.NewTextFieldMapping()
	sourceFieldMapping.Analyzer = keyword.Name
	sourceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("source", sourceFieldMapping)

	sourceURLFieldMapping := bleve.NewTextFieldMapping()
	sourceURLFieldMapping.Analyzer = keyword.Name
	sourceURLFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("source_url", sourceURLFieldMapping)

	missingFieldMapping := bleve.NewBooleanFieldMapping()
	missingFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("missing", missingFieldMapping)

	// Numeric fields for range queries and sorting.
	durationFieldMapping := bleve.NewNumericFieldMapping()
	durationFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("duration_seconds", durationFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
