// Package chromem provides an embedded, optionally persistent vector driver
// backed by chromem-go. It needs no external service.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const defaultCollection = "docrag"

// Driver implements vector.Driver on a chromem-go collection.
type Driver struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions uint
	logger     *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the chromem driver.
type Config struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path string

	// Compress gzips persisted documents.
	Compress bool

	// CollectionName defaults to "docrag".
	CollectionName string

	// Dimensions, when set, is enforced on upsert and search.
	Dimensions uint
}

// NewDriver opens (or creates) the chromem database and collection.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.CollectionName == "" {
		c.CollectionName = defaultCollection
	}

	var (
		db  *chromem.DB
		err error
	)
	if c.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(c.Path, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", c.Path, err)
		}
	}

	collection, err := db.GetOrCreateCollection(c.CollectionName, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", c.CollectionName, err)
	}

	logger.Info("chromem vector driver initialized",
		"path", c.Path,
		"collection", c.CollectionName,
		"documents", collection.Count(),
	)

	return &Driver{
		db:         db,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// refuseEmbedding is the collection's embedding func. Entries always carry
// their vector, so chromem must never embed on its own.
func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: chromem collection has no embedder", vector.ErrEmbedding)
}

// Upsert adds entries; chromem replaces documents with an existing ID.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		if err := d.checkDimensions(e.Embedding); err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Metadata:  metadata(e.Chunk),
			Embedding: e.Embedding,
			Content:   e.Chunk.Text,
		})
	}

	if err := d.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	d.logger.Debug("upserted entries to chromem", "count", len(entries))

	return nil
}

// Search runs an exhaustive cosine search and drops results below minScore.
func (d *Driver) Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	count := d.collection.Count()
	if count == 0 {
		return nil, nil
	}
	k = min(k, count)

	hits, err := d.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	results := make([]vector.Result, 0, len(hits))
	for _, h := range hits {
		if h.Similarity < minScore {
			continue
		}
		chunk := chunkFromMetadata(h.Metadata)
		chunk.Text = h.Content
		results = append(results, vector.Result{
			Entry: vector.Entry{ID: h.ID, Chunk: chunk},
			Score: h.Similarity,
		})
	}

	d.logger.Debug("searched chromem", "results", len(results))

	return results, nil
}

// DeleteByDocument removes every document whose document_id metadata matches.
func (d *Driver) DeleteByDocument(ctx context.Context, documentID string) error {
	err := d.collection.Delete(ctx, map[string]string{vector.MetaDocumentID: documentID}, nil)
	if err != nil {
		return fmt.Errorf("deleting documents for %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document entries from chromem", "document_id", documentID)

	return nil
}

// Close is a no-op; persistent collections write through on every change.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) checkDimensions(embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("embedding is empty")
	}
	if d.dimensions != 0 && uint(len(embedding)) != d.dimensions {
		return fmt.Errorf("%w: got %d dimensions, index has %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}
	return nil
}

func metadata(c chunker.Chunk) map[string]string {
	return map[string]string{
		vector.MetaDocumentID:  c.DocumentID,
		vector.MetaFilename:    c.Filename,
		vector.MetaChunkIndex:  strconv.Itoa(c.Index),
		vector.MetaTotalChunks: strconv.Itoa(c.Total),
	}
}

func chunkFromMetadata(m map[string]string) chunker.Chunk {
	c := chunker.Chunk{
		DocumentID: m[vector.MetaDocumentID],
		Filename:   m[vector.MetaFilename],
		Index:      -1,
	}
	if v, err := strconv.Atoi(m[vector.MetaChunkIndex]); err == nil {
		c.Index = v
	}
	if v, err := strconv.Atoi(m[vector.MetaTotalChunks]); err == nil {
		c.Total = v
	}
	return c
}
