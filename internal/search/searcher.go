// Package search provides full-text search over analyzed diagnostics,
// backed by an in-memory bleve index. It exists so large runs can be
// explored by message text instead of scrolling the report.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// Searcher defines the interface for keyword search over diagnostics.
type Searcher interface {
	// Search executes a keyword search using FTS query syntax against
	// diagnostic messages. Supports field scoping (message, code, file),
	// boolean operators, phrase search, and wildcards. Options may be
	// nil (defaults will be applied).
	Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error)

	// Close releases resources held by the searcher.
	Close() error
}

// Options filters and bounds a search.
type Options struct {
	// Limit caps returned hits. Non-positive or >100 falls back to 15.
	Limit int
	// Category restricts hits to one diagnostic category.
	Category string
	// File restricts hits by file path terms; wildcards are allowed
	// (e.g. "handler*").
	File string
}

// DefaultOptions returns the options applied when the caller passes nil.
func DefaultOptions() *Options {
	return &Options{Limit: 15}
}

// Result is a single search hit with highlighting.
type Result struct {
	Diagnostic diagnostic.Diagnostic `json:"diagnostic"`
	Score      float64               `json:"score"`
	Highlights []string              `json:"highlights"`
}

// searcher implements Searcher using bleve full-text search.
type searcher struct {
	index bleve.Index
	byID  map[string]diagnostic.Diagnostic
	mu    sync.RWMutex
}

// NewSearcher builds an in-memory index over the given diagnostics.
// Watch mode replaces the whole searcher per run rather than patching
// the index, so there is no incremental update path.
func NewSearcher(ctx context.Context, diags []diagnostic.Diagnostic) (Searcher, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexDiagnostics(ctx, index, diags); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index diagnostics: %w", err)
	}

	byID := make(map[string]diagnostic.Diagnostic, len(diags))
	for _, d := range diags {
		byID[d.ID] = d
	}

	return &searcher{index: index, byID: byID}, nil
}

// buildIndexMapping creates the index mapping for diagnostic documents.
// The message is the primary search target; code and category use the
// keyword analyzer for exact filtering.
func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	messageMapping := bleve.NewTextFieldMapping()
	messageMapping.Analyzer = "standard"
	messageMapping.Store = true              // Store for highlighting
	messageMapping.Index = true              // Searchable
	messageMapping.IncludeTermVectors = true // Enable phrase search

	codeMapping := bleve.NewTextFieldMapping()
	codeMapping.Analyzer = "keyword"
	codeMapping.Store = false
	codeMapping.Index = true

	categoryMapping := bleve.NewTextFieldMapping()
	categoryMapping.Analyzer = "keyword"
	categoryMapping.Store = false
	categoryMapping.Index = true

	// Standard analyzer splits paths into terms, so "handler*" matches
	// src/api/handler.ts.
	fileMapping := bleve.NewTextFieldMapping()
	fileMapping.Analyzer = "standard"
	fileMapping.Store = false
	fileMapping.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("message", messageMapping)
	docMapping.AddFieldMappingsAt("code", codeMapping)
	docMapping.AddFieldMappingsAt("category", categoryMapping)
	docMapping.AddFieldMappingsAt("file", fileMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// indexDiagnostics adds diagnostics to the bleve index in batches.
func indexDiagnostics(ctx context.Context, index bleve.Index, diags []diagnostic.Diagnostic) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, d := range diags {
		// Check cancellation periodically
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		doc := map[string]interface{}{
			"message":  d.Message,
			"code":     d.Code,
			"category": string(d.Category),
			"file":     d.File,
		}
		if err := batch.Index(d.ID, doc); err != nil {
			return fmt.Errorf("failed to add diagnostic %s to batch: %w", d.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}

	return nil
}

// Search executes a keyword search using bleve QueryStringQuery syntax.
func (s *searcher) Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error) {
	if options == nil {
		options = DefaultOptions()
	}

	limit := options.Limit
	if limit <= 0 || limit > 100 {
		limit = 15
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var queries []query.Query
	queries = append(queries, bleve.NewQueryStringQuery(queryStr))

	if options.Category != "" {
		catQuery := bleve.NewMatchQuery(options.Category)
		catQuery.SetField("category")
		queries = append(queries, catQuery)
	}

	if options.File != "" {
		fileQuery := bleve.NewWildcardQuery(options.File)
		fileQuery.SetField("file")
		queries = append(queries, fileQuery)
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	searchRequest := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	highlightStyle := "html"
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.Style = &highlightStyle
	searchRequest.Highlight.Fields = []string{"message"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		d, ok := s.byID[hit.ID]
		if !ok {
			continue
		}
		results = append(results, &Result{
			Diagnostic: d,
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}

	return results, nil
}

// extractHighlights flattens bleve fragments, capped at 3 per hit.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string
	for _, snippets := range fragments {
		highlights = append(highlights, snippets...)
	}
	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Close releases resources held by the searcher.
func (s *searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
