package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// DefaultIndexConcurrency bounds concurrent embedding calls per document.
const DefaultIndexConcurrency = 4

// IndexerConfig holds the collaborators and settings of an Indexer.
type IndexerConfig struct {
	Chunking    chunker.Config
	Concurrency int
	Embedder    embeddings.Embedder
	Driver      vector.Driver
	Logger      *slog.Logger
}

// Indexer chunks a document, embeds every chunk and stores the entries.
type Indexer struct {
	chunking    chunker.Config
	concurrency int
	embedder    embeddings.Embedder
	driver      vector.Driver
	logger      *slog.Logger
}

// NewIndexer creates an Indexer. The chunking configuration is validated on
// every Index call so a bad configuration surfaces as ErrValidation.
func NewIndexer(c IndexerConfig) *Indexer {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultIndexConcurrency
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return &Indexer{
		chunking:    c.Chunking,
		concurrency: c.Concurrency,
		embedder:    c.Embedder,
		driver:      c.Driver,
		logger:      c.Logger,
	}
}

// Index chunks text, embeds each chunk and upserts all entries in one call.
// It returns the number of chunks stored. Any embedding or upsert failure
// fails the whole call with ErrIndexing.
func (i *Indexer) Index(ctx context.Context, documentID, filename, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: document %s has no text", ErrValidation, documentID)
	}

	ch, err := chunker.New(i.chunking)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	start := time.Now()
	chunks := ch.Chunk(documentID, filename, text)

	entries := make([]vector.Entry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, c := range chunks {
		g.Go(func() error {
			emb, err := i.embedder.Embed(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", c.Index, err)
			}
			entries[idx] = vector.Entry{
				ID:        uuid.NewString(),
				Embedding: emb,
				Chunk:     c,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w: document %s: %w", ErrIndexing, documentID, err)
	}

	if err := i.driver.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("%w: document %s: storing chunks: %w", ErrIndexing, documentID, err)
	}

	i.logger.Info("indexed document",
		"document_id", documentID,
		"filename", filename,
		"chunks", len(chunks),
		"duration", time.Since(start),
	)

	return len(chunks), nil
}

// Remove deletes every stored chunk of documentID.
func (i *Indexer) Remove(ctx context.Context, documentID string) error {
	if err := i.driver.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("removing chunks of document %s: %w", documentID, err)
	}
	i.logger.Debug("removed document chunks", "document_id", documentID)
	return nil
}
