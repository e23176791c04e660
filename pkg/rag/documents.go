package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/docrag/pkg/eventstream"
	"github.com/papercomputeco/docrag/pkg/eventstream/nop"
	"github.com/papercomputeco/docrag/pkg/extract"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/storage"
	"github.com/papercomputeco/docrag/pkg/utils"
)

const eventSourceService = "docrag"

// DocumentServiceConfig wires a DocumentService.
type DocumentServiceConfig struct {
	RAG       *Service
	Store     storage.Driver
	Publisher eventstream.Publisher

	// MaxUploadBytes limits uploads. Zero uses extract.DefaultMaxBytes.
	MaxUploadBytes int64

	Logger *slog.Logger
}

// DocumentService manages uploaded documents: it extracts their text, keeps
// their metadata and keeps the vector index in step.
type DocumentService struct {
	rag       *Service
	store     storage.Driver
	publisher eventstream.Publisher
	maxBytes  int64
	logger    *slog.Logger
}

// NewDocumentService creates a DocumentService. A nil publisher disables
// events.
func NewDocumentService(c DocumentServiceConfig) *DocumentService {
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = extract.DefaultMaxBytes
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return &DocumentService{
		rag:       c.RAG,
		store:     c.Store,
		publisher: c.Publisher,
		maxBytes:  c.MaxUploadBytes,
		logger:    c.Logger,
	}
}

// MaxUploadBytes is the upload size limit in effect.
func (d *DocumentService) MaxUploadBytes() int64 {
	return d.maxBytes
}

// Upload validates and extracts a file, records it and indexes its text.
// Rejected files return ErrValidation and leave no record. A failed index
// does not fail the upload: the document is kept with StatusFailed so it can
// be re-indexed.
func (d *DocumentService) Upload(ctx context.Context, filename string, data []byte) (*storage.Document, error) {
	if err := extract.Validate(filename, int64(len(data)), d.maxBytes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	text, err := extract.Text(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	d.logger.Info("extracted document text",
		"filename", filename,
		"characters", len([]rune(text)),
	)

	now := time.Now().UTC()
	doc := &storage.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FileType:   extract.FileType(filename),
		FileSize:   int64(len(data)),
		Status:     storage.StatusProcessing,
		Content:    text,
		UploadedAt: now,
		UpdatedAt:  now,
	}
	if err := d.store.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	if err := d.index(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reindex drops a document's chunks and indexes its stored text again.
func (d *DocumentService) Reindex(ctx context.Context, id string) (*storage.Document, error) {
	doc, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := d.rag.Remove(ctx, id); err != nil {
		return nil, fmt.Errorf("%w: removing previous chunks: %w", ErrIndexing, err)
	}

	doc.Status = storage.StatusProcessing
	doc.ChunkCount = 0
	doc.Error = ""
	if err := d.index(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// index runs the indexer and records the outcome. Only a failure to save
// the outcome is returned.
func (d *DocumentService) index(ctx context.Context, doc *storage.Document) error {
	start := time.Now()
	count, err := d.rag.Index(ctx, doc.ID, doc.Filename, doc.Content)
	if err != nil {
		d.logger.Error("failed to index document",
			"document_id", doc.ID,
			"filename", doc.Filename,
			"error", err,
		)
		doc.Status = storage.StatusFailed
		doc.Error = utils.Truncate(err.Error(), 500)
	} else {
		doc.Status = storage.StatusIndexed
		doc.ChunkCount = count
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := d.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("saving document status: %w", err)
	}

	event := eventstream.NewDocumentEvent(eventstream.EventTypeDocumentIndexed, d.source(), meta(doc))
	event.DurationMs = time.Since(start).Milliseconds()
	d.publish(ctx, event)

	return nil
}

// List returns all documents, newest first.
func (d *DocumentService) List(ctx context.Context) ([]*storage.Document, error) {
	return d.store.List(ctx)
}

// Get returns a document by ID.
func (d *DocumentService) Get(ctx context.Context, id string) (*storage.Document, error) {
	return d.store.Get(ctx, id)
}

// Delete removes a document's chunks and then its record.
func (d *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := d.rag.Remove(ctx, id); err != nil {
		return fmt.Errorf("%w: removing chunks: %w", ErrIndexing, err)
	}
	if err := d.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("deleting document: %w", err)
	}

	d.logger.Info("deleted document", "document_id", id, "filename", doc.Filename)
	d.publish(ctx, eventstream.NewDocumentEvent(eventstream.EventTypeDocumentDeleted, d.source(), meta(doc)))

	return nil
}

func (d *DocumentService) publish(ctx context.Context, event *eventstream.DocumentEvent) {
	if err := d.publisher.PublishDocument(ctx, event); err != nil {
		d.logger.Warn("failed to publish document event",
			"event_type", event.EventType,
			"document_id", event.Document.ID,
			"error", err,
		)
	}
}

func (d *DocumentService) source() eventstream.EventSource {
	return eventstream.EventSource{Service: eventSourceService, Version: utils.Version}
}

func meta(doc *storage.Document) eventstream.DocumentMeta {
	return eventstream.DocumentMeta{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		Error:      doc.Error,
	}
}
