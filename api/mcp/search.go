package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/docrag/api/search"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the user's uploaded documents using semantic search. Returns the most similar text chunks with their source filename and similarity score."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default: the configured top-k)"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	output, err := apisearch.Search(ctx, s.config.Questions, input.Query, input.TopK, s.config.Logger)
	if err != nil {
		s.config.Logger.Error("failed to search", "error", err)
		return errorResult(fmt.Sprintf("Search failed: %v", err)), apisearch.SearchOutput{}, nil
	}

	return textResult(output), *output, nil
}
