// Package rag implements retrieval-augmented question answering over
// uploaded documents: indexing chunked text, retrieving similar chunks,
// assembling a grounded prompt and generating the answer.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// Config wires a Service. Collaborators are built once by the caller and
// shared across calls.
type Config struct {
	Embedder  embeddings.Embedder
	Generator llm.Generator
	Driver    vector.Driver

	Chunking         chunker.Config
	IndexConcurrency int

	// TopK and MinScore default to DefaultTopK and DefaultMinScore when
	// not positive.
	TopK     int
	MinScore float32

	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string

	Logger *slog.Logger
}

// Service is the facade over indexing and answering.
type Service struct {
	indexer      *Indexer
	retriever    *Retriever
	orchestrator *Orchestrator
	topK         int
	minScore     float32
}

// NewService builds the indexer, retriever and orchestrator from c.
func NewService(c Config) (*Service, error) {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MinScore <= 0 {
		c.MinScore = DefaultMinScore
	}
	if err := c.Chunking.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	prompt, err := NewPrompt(c.PromptTemplate)
	if err != nil {
		return nil, err
	}

	retriever := NewRetriever(RetrieverConfig{
		Embedder: c.Embedder,
		Driver:   c.Driver,
		Logger:   c.Logger,
	})

	orchestrator, err := NewOrchestrator(OrchestratorConfig{
		Retriever: retriever,
		Generator: c.Generator,
		Prompt:    prompt,
		TopK:      c.TopK,
		MinScore:  c.MinScore,
		Logger:    c.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		indexer: NewIndexer(IndexerConfig{
			Chunking:    c.Chunking,
			Concurrency: c.IndexConcurrency,
			Embedder:    c.Embedder,
			Driver:      c.Driver,
			Logger:      c.Logger,
		}),
		retriever:    retriever,
		orchestrator: orchestrator,
		topK:         c.TopK,
		minScore:     c.MinScore,
	}, nil
}

// Index makes a document's text searchable and returns its chunk count.
func (s *Service) Index(ctx context.Context, documentID, filename, text string) (int, error) {
	return s.indexer.Index(ctx, documentID, filename, text)
}

// Answer answers question from the indexed documents.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	return s.orchestrator.Answer(ctx, question)
}

// Search returns the chunks most similar to query without generating an
// answer. A non-positive k uses the configured top-k.
func (s *Service) Search(ctx context.Context, query string, k int) (RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrValidation)
	}
	if k <= 0 {
		k = s.topK
	}
	return s.retriever.Retrieve(ctx, query, k, s.minScore), nil
}

// Remove deletes the indexed chunks of a document.
func (s *Service) Remove(ctx context.Context, documentID string) error {
	return s.indexer.Remove(ctx, documentID)
}
