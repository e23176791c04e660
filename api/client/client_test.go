package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gofiber/adaptor/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/rag"
	"github.com/papercomputeco/docrag/pkg/storage"
	"github.com/papercomputeco/docrag/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
	"github.com/papercomputeco/docrag/pkg/vector/chromem"
)

const bioText = "Osmosis moves water across a membrane."

var _ = Describe("Client", func() {
	var (
		ctx       context.Context
		generator *testutils.MockGenerator
		ts        *httptest.Server
		c         *client.Client
	)

	BeforeEach(func() {
		ctx = context.Background()

		embedder := testutils.NewMockEmbedder()
		embedder.Embeddings[bioText] = []float32{1, 0, 0}
		embedder.Embeddings["How does water cross a membrane?"] = []float32{0.9, 0.1, 0}
		generator = testutils.NewMockGenerator("By osmosis.")

		driver, err := chromem.NewDriver(chromem.Config{Dimensions: 3}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		svc, err := rag.NewService(rag.Config{
			Embedder:  embedder,
			Generator: generator,
			Driver:    driver,
			Chunking:  chunker.DefaultConfig(),
			MinScore:  0.3,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		docs := rag.NewDocumentService(rag.DocumentServiceConfig{
			RAG:            svc,
			Store:          inmemory.NewDriver(),
			Publisher:      testutils.NewMockPublisher(),
			MaxUploadBytes: 1024,
			Logger:         logger.Nop(),
		})

		server, err := api.NewServer(api.Config{}, svc, docs, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ts = httptest.NewServer(adaptor.FiberApp(server.App()))
		c, err = client.New(ts.URL)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ts.Close()
	})

	Describe("New", func() {
		It("rejects targets without a scheme or host", func() {
			_, err := client.New("localhost")
			Expect(err).To(HaveOccurred())
		})
	})

	It("uploads, lists, reindexes and deletes documents", func() {
		up, err := c.Upload(ctx, "bio.txt", strings.NewReader(bioText))
		Expect(err).NotTo(HaveOccurred())
		Expect(up.ID).NotTo(BeEmpty())
		Expect(up.Status).To(Equal(storage.StatusIndexed))
		Expect(up.ChunkCount).To(Equal(1))

		list, err := c.ListDocuments(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Count).To(Equal(1))

		doc, err := c.GetDocument(ctx, up.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Filename).To(Equal("bio.txt"))

		doc, err = c.ReindexDocument(ctx, up.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.ChunkCount).To(Equal(1))

		Expect(c.DeleteDocument(ctx, up.ID)).To(Succeed())

		err = c.DeleteDocument(ctx, up.ID)
		var statusErr *client.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.Code).To(Equal(http.StatusNotFound))
	})

	It("asks questions and returns the answer with its sources", func() {
		_, err := c.Upload(ctx, "bio.txt", strings.NewReader(bioText))
		Expect(err).NotTo(HaveOccurred())

		resp, err := c.Ask(ctx, "How does water cross a membrane?")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Answer).To(Equal("By osmosis."))
		Expect(resp.Sources).To(ConsistOf("bio.txt"))
	})

	It("surfaces the server message for rejected questions", func() {
		_, err := c.Ask(ctx, "   ")
		var statusErr *client.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.Code).To(Equal(http.StatusBadRequest))
		Expect(statusErr.Message).To(Equal("Please provide a valid question."))
	})

	It("searches indexed chunks", func() {
		_, err := c.Upload(ctx, "bio.txt", strings.NewReader(bioText))
		Expect(err).NotTo(HaveOccurred())

		out, err := c.Search(ctx, "How does water cross a membrane?", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].Filename).To(Equal("bio.txt"))
	})
})
