// Package vector provides the vector index capability used to store and search
// chunk embeddings, plus its backend implementations.
package vector

import (
	"context"

	"github.com/papercomputeco/docrag/pkg/chunker"
)

// Metadata keys stored alongside every entry. Backends that keep a flat
// payload use these names so entries stay interchangeable across drivers.
const (
	MetaDocumentID  = "document_id"
	MetaFilename    = "filename"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaText        = "text"
)

// Entry is a stored chunk with its embedding.
type Entry struct {
	// ID is a unique identifier for the entry (a UUID).
	ID string

	// Embedding is the vector representation of the chunk text.
	Embedding []float32

	// Chunk is the payload: the chunk text and its positional metadata.
	Chunk chunker.Chunk
}

// Result represents a search hit with its similarity score.
type Result struct {
	Entry

	// Score is the cosine similarity to the query (1.0 is identical).
	Score float32
}

// Driver handles storage and similarity search of chunk embeddings.
type Driver interface {
	// Upsert stores entries. If an entry with the same ID already exists,
	// implementers should replace it.
	Upsert(ctx context.Context, entries []Entry) error

	// Search returns at most k entries whose similarity to the embedding is at
	// least minScore, ordered by descending score. The threshold is applied
	// by the backend, callers do not post-filter.
	Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]Result, error)

	// DeleteByDocument removes every entry whose document_id metadata matches.
	// Deleting a document with no entries is not an error.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close releases any resources held by the driver.
	Close() error
}
