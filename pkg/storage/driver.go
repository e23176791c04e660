// Package storage persists document metadata: what was uploaded, when, and
// how indexing went. Chunk vectors live in pkg/vector.
package storage

import (
	"context"
	"time"
)

// Status is the indexing state of a document.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusFailed     Status = "failed"
)

// Document is the metadata record of an uploaded file.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	Status     Status    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`

	// Content is the extracted text, kept so the document can be
	// re-indexed. List leaves it empty.
	Content string `json:"-"`

	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Driver defines the interface for persisting document metadata.
type Driver interface {
	// Put inserts the document or replaces the record with the same ID.
	Put(ctx context.Context, doc *Document) error

	// Get retrieves a document by ID. Returns a NotFoundError when missing.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns all documents without Content, most recently uploaded
	// first.
	List(ctx context.Context) ([]*Document, error)

	// Delete removes a document. Returns a NotFoundError when missing.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases any resources.
	Close() error
}
