package testutils

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/docrag/pkg/vector"
)

// SearchCall records the arguments of one Search call.
type SearchCall struct {
	Embedding []float32
	K         int
	MinScore  float32
}

// MockVectorDriver is a test vector driver that records calls and returns
// configurable results.
type MockVectorDriver struct {
	// Results backs Search, which drops scores under the floor, ranks by
	// descending score and truncates to k like a real backend.
	Results []vector.Result

	// UpsertErr, SearchErr and DeleteErr fail the matching call.
	UpsertErr error
	SearchErr error
	DeleteErr error

	mu          sync.Mutex
	entries     []vector.Entry
	upsertCalls int
	searches    []SearchCall
	deleted     []string
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Upsert(_ context.Context, entries []vector.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searches = append(m.searches, SearchCall{Embedding: embedding, K: k, MinScore: minScore})
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	hits := make([]vector.Result, 0, len(m.Results))
	for _, r := range m.Results {
		if r.Score >= minScore {
			hits = append(hits, r)
		}
	}
	slices.SortStableFunc(hits, func(a, b vector.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MockVectorDriver) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, documentID)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Chunk.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// Entries returns every stored entry.
func (m *MockVectorDriver) Entries() []vector.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.Entry(nil), m.entries...)
}

// UpsertCalls returns how many times Upsert was called.
func (m *MockVectorDriver) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCalls
}

// Searches returns the recorded Search calls.
func (m *MockVectorDriver) Searches() []SearchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchCall(nil), m.searches...)
}

// Deleted returns the document IDs passed to DeleteByDocument.
func (m *MockVectorDriver) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
