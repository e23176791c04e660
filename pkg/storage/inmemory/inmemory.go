// Package inmemory provides a map-backed storage driver for tests and
// throwaway servers.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/papercomputeco/docrag/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of documents
	mu sync.RWMutex

	// docs is keyed by document ID
	docs map[string]storage.Document
}

var _ storage.Driver = (*Driver)(nil)

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		docs: make(map[string]storage.Document),
	}
}

// Put stores a copy of doc.
func (s *Driver) Put(_ context.Context, doc *storage.Document) error {
	if doc == nil {
		return errors.New("cannot store nil document")
	}
	if doc.ID == "" {
		return errors.New("document id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return &doc, nil
}

// List returns every document, newest upload first.
func (s *Driver) List(_ context.Context) ([]*storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*storage.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Content = ""
		docs = append(docs, &doc)
	}

	slices.SortFunc(docs, func(a, b *storage.Document) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	return docs, nil
}

// Delete removes a document by ID.
func (s *Driver) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return storage.NotFoundError{ID: id}
	}
	delete(s.docs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}
