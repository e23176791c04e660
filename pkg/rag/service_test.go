package rag_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/rag"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
	"github.com/papercomputeco/docrag/pkg/vector/chromem"
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		generator *testutils.MockGenerator
		svc       *rag.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["Osmosis moves water across a membrane."] = []float32{1, 0, 0}
		embedder.Embeddings["The French Revolution began in 1789."] = []float32{0, 1, 0}
		embedder.Embeddings["How does water cross a membrane?"] = []float32{0.9, 0.1, 0}
		embedder.Embeddings["Who painted the Mona Lisa?"] = []float32{0, 0, 1}

		generator = testutils.NewMockGenerator("By osmosis.")

		driver, err := chromem.NewDriver(chromem.Config{Dimensions: 3}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		svc, err = rag.NewService(rag.Config{
			Embedder:  embedder,
			Generator: generator,
			Driver:    driver,
			Chunking:  chunker.DefaultConfig(),
			TopK:      5,
			MinScore:  0.3,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		n, err := svc.Index(ctx, "doc-bio", "bio.txt", "Osmosis moves water across a membrane.")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		n, err = svc.Index(ctx, "doc-hist", "history.txt", "The French Revolution began in 1789.")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("rejects an invalid chunking configuration", func() {
		_, err := rag.NewService(rag.Config{Chunking: chunker.Config{WindowSize: 0}})
		Expect(err).To(MatchError(rag.ErrValidation))
	})

	It("answers from the relevant document only", func() {
		answer, err := svc.Answer(ctx, "How does water cross a membrane?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal("By osmosis."))
		Expect(answer.Sources).To(Equal([]string{"bio.txt"}))
		Expect(generator.LastPrompt()).NotTo(ContainSubstring("French Revolution"))
	})

	It("answers with the fallback for an unrelated question", func() {
		answer, err := svc.Answer(ctx, "Who painted the Mona Lisa?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal(rag.NoRelevantInformation))
		Expect(generator.Calls()).To(Equal(0))
	})

	It("searches without generating", func() {
		results, err := svc.Search(ctx, "How does water cross a membrane?", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Chunk.Filename).To(Equal("bio.txt"))
		Expect(generator.Calls()).To(Equal(0))
	})

	It("rejects a blank search query", func() {
		_, err := svc.Search(ctx, " ", 5)
		Expect(err).To(MatchError(rag.ErrValidation))
	})

	It("stops answering from a removed document", func() {
		Expect(svc.Remove(ctx, "doc-bio")).To(Succeed())

		answer, err := svc.Answer(ctx, "How does water cross a membrane?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal(rag.NoRelevantInformation))
	})

	Describe("defaults", func() {
		It("searches with the default k and similarity floor when unset", func() {
			driver := testutils.NewMockVectorDriver()
			svc, err := rag.NewService(rag.Config{
				Embedder:  embedder,
				Generator: generator,
				Driver:    driver,
				Chunking:  chunker.DefaultConfig(),
			})
			Expect(err).NotTo(HaveOccurred())

			answer, err := svc.Answer(ctx, "How does water cross a membrane?")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Text).To(Equal(rag.NoRelevantInformation))

			_, err = svc.Search(ctx, "How does water cross a membrane?", 0)
			Expect(err).NotTo(HaveOccurred())

			searches := driver.Searches()
			Expect(searches).To(HaveLen(2))
			for _, s := range searches {
				Expect(s.K).To(Equal(rag.DefaultTopK))
				Expect(s.MinScore).To(Equal(rag.DefaultMinScore))
			}
		})
	})
})
