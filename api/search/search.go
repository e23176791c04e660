// Package search provides shared search types and logic for similarity
// search over indexed document chunks. It is used by both the REST API
// endpoint and the MCP server tool.
package search

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/docrag/pkg/rag"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// Searcher runs a similarity search. A non-positive k uses the default.
type Searcher interface {
	Search(ctx context.Context, query string, k int) (rag.RetrievalResult, error)
}

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents a single matching chunk.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search returns the chunks most similar to query, best first.
func Search(
	ctx context.Context,
	searcher Searcher,
	query string,
	topK int,
	logger *slog.Logger,
) (*SearchOutput, error) {
	logger.Debug("search request",
		"query", query,
		"top_k", topK,
	)

	results, err := searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		searchResults = append(searchResults, BuildSearchResult(r))
	}

	return &SearchOutput{
		Query:   query,
		Results: searchResults,
		Count:   len(searchResults),
	}, nil
}

// BuildSearchResult converts a vector hit into a SearchResult.
func BuildSearchResult(r vector.Result) SearchResult {
	return SearchResult{
		DocumentID: r.Chunk.DocumentID,
		Filename:   r.Chunk.Filename,
		ChunkIndex: r.Chunk.Index,
		Score:      r.Score,
		Text:       r.Chunk.Text,
	}
}
