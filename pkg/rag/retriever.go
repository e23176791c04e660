package rag

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 5

	// DefaultMinScore is the cosine similarity floor for retrieved chunks.
	DefaultMinScore float32 = 0.3
)

// RetrievalResult is a list of hits ranked by descending score. It holds at
// most k results and every score is at least the requested floor.
type RetrievalResult []vector.Result

// RetrieverConfig holds the collaborators of a Retriever.
type RetrieverConfig struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver
	Logger   *slog.Logger
}

// Retriever finds the chunks most similar to a query.
type Retriever struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(c RetrieverConfig) *Retriever {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return &Retriever{
		embedder: c.Embedder,
		driver:   c.Driver,
		logger:   c.Logger,
	}
}

// Retrieve embeds query once and searches the index for the k most similar
// chunks scoring at least minScore. A non-positive k uses DefaultTopK. The
// floor and ranking are the index's job; hits are returned as the driver
// ranked them.
//
// Embedding and search failures are logged and yield an empty result; the
// caller then answers with the no-information response.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore float32) RetrievalResult {
	if k <= 0 {
		k = DefaultTopK
	}

	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("retrieval failed: embedding query", "error", err)
		return RetrievalResult{}
	}

	hits, err := r.driver.Search(ctx, emb, k, minScore)
	if err != nil {
		r.logger.Warn("retrieval failed: searching index", "error", err)
		return RetrievalResult{}
	}

	results := RetrievalResult(hits)
	if results == nil {
		results = RetrievalResult{}
	}

	r.logger.Debug("retrieved chunks",
		"k", k,
		"min_score", minScore,
		"results", len(results),
	)

	return results
}
