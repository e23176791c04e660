package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/embeddings/openai"
	"github.com/papercomputeco/docrag/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		received map[string]any
		auth     string
		status   int
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
				return
			}
			w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[3,4]}]}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func() *openai.Embedder {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     "Bearer sk-test",
			BaseURL:    server.URL + "/v1",
			Dimensions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("requires an API key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("returns a normalized embedding", func() {
		emb, err := newEmbedder().Embed(context.Background(), "cell membrane")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(HaveLen(2))
		Expect(emb[0]).To(BeNumerically("~", 0.6, 1e-6))
		Expect(emb[1]).To(BeNumerically("~", 0.8, 1e-6))

		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(received).To(HaveKeyWithValue("model", openai.DefaultEmbeddingModel))
		Expect(received).To(HaveKeyWithValue("dimensions", BeNumerically("==", 2)))
	})

	It("rejects empty text without calling the API", func() {
		_, err := newEmbedder().Embed(context.Background(), "")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(received).To(BeNil())
	})

	It("wraps API errors in ErrEmbedding", func() {
		status = http.StatusTooManyRequests

		_, err := newEmbedder().Embed(context.Background(), "x")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("quota exceeded"))
	})
})
