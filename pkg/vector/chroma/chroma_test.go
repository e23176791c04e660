package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/vector"
	"github.com/papercomputeco/docrag/pkg/vector/chroma"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma records the requests it receives and answers queries with a
// canned response.
type fakeChroma struct {
	mu            sync.Mutex
	createBody    map[string]any
	upsertBody    map[string]any
	deleteBody    map[string]any
	queryResponse map[string]any
}

func (f *fakeChroma) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, collectionsPath+"/"):
			http.Error(w, "not found", http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == collectionsPath:
			json.NewDecoder(r.Body).Decode(&f.createBody)
			json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "docrag"})
		case strings.HasSuffix(r.URL.Path, "/col-1/upsert"):
			json.NewDecoder(r.Body).Decode(&f.upsertBody)
			w.Write([]byte(`{}`))
		case strings.HasSuffix(r.URL.Path, "/col-1/delete"):
			json.NewDecoder(r.Body).Decode(&f.deleteBody)
			w.Write([]byte(`{}`))
		case strings.HasSuffix(r.URL.Path, "/col-1/query"):
			json.NewEncoder(w).Encode(f.queryResponse)
		default:
			http.Error(w, "unexpected "+r.URL.Path, http.StatusTeapot)
		}
	})
}

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("returns an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("succeeds after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each attempt is a GET for the collection followed by a POST to
			// create it. Fail two full attempts.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{
					"id":   "test-collection-id",
					"name": "docrag",
				})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("returns an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})

		It("creates the collection in the cosine space", func() {
			fake := &fakeChroma{}
			server := httptest.NewServer(fake.handler())
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.createBody).To(HaveKeyWithValue("name", "docrag"))
			Expect(fake.createBody["metadata"]).To(HaveKeyWithValue("hnsw:space", "cosine"))
		})
	})

	Context("with a connected driver", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{}
			server = httptest.NewServer(fake.handler())

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("upserts ids, embeddings, chunk text and metadata", func() {
			err := driver.Upsert(ctx, []vector.Entry{{
				ID:        "e1",
				Embedding: []float32{0.1, 0.2},
				Chunk: chunker.Chunk{
					Text:       "hello",
					DocumentID: "doc-1",
					Filename:   "a.pdf",
					Index:      3,
					Total:      7,
				},
			}})
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.upsertBody["ids"]).To(Equal([]any{"e1"}))
			Expect(fake.upsertBody["documents"]).To(Equal([]any{"hello"}))
			metadatas := fake.upsertBody["metadatas"].([]any)
			Expect(metadatas[0]).To(HaveKeyWithValue("document_id", "doc-1"))
			Expect(metadatas[0]).To(HaveKeyWithValue("filename", "a.pdf"))
			Expect(metadatas[0]).To(HaveKeyWithValue("chunk_index", BeNumerically("==", 3)))
			Expect(metadatas[0]).To(HaveKeyWithValue("total_chunks", BeNumerically("==", 7)))
		})

		It("converts distances to scores and drops results below the floor", func() {
			fake.queryResponse = map[string]any{
				"ids":       [][]string{{"e1", "e2", "e3"}},
				"distances": [][]float32{{0.1, 0.5, 0.9}},
				"documents": [][]string{{"one", "two", "three"}},
				"metadatas": [][]map[string]any{{
					{"document_id": "d1", "filename": "a.pdf", "chunk_index": 0, "total_chunks": 2},
					{"document_id": "d1", "filename": "a.pdf", "chunk_index": 1, "total_chunks": 2},
					{"document_id": "d2", "filename": "b.pdf", "chunk_index": 0, "total_chunks": 1},
				}},
			}

			results, err := driver.Search(ctx, []float32{1, 0}, 5, 0.3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("e1"))
			Expect(results[0].Score).To(BeNumerically("~", 0.9, 1e-6))
			Expect(results[0].Chunk.Text).To(Equal("one"))
			Expect(results[1].Chunk.Index).To(Equal(1))
			Expect(results[1].Chunk.Filename).To(Equal("a.pdf"))
		})

		It("reports a missing chunk index as -1", func() {
			fake.queryResponse = map[string]any{
				"ids":       [][]string{{"e1"}},
				"distances": [][]float32{{0.2}},
				"documents": [][]string{{"one"}},
				"metadatas": [][]map[string]any{{{"filename": "a.pdf"}}},
			}

			results, err := driver.Search(ctx, []float32{1, 0}, 5, 0.3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Chunk.Index).To(Equal(-1))
		})

		It("deletes by document_id metadata filter", func() {
			Expect(driver.DeleteByDocument(ctx, "doc-9")).To(Succeed())
			Expect(fake.deleteBody).To(HaveKeyWithValue("where", HaveKeyWithValue("document_id", "doc-9")))
		})
	})
})
