package rag_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docrag/pkg/logger"
	"github.com/papercomputeco/docrag/pkg/rag"
	testutils "github.com/papercomputeco/docrag/pkg/utils/test"
	"github.com/papercomputeco/docrag/pkg/vector"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx          context.Context
		embedder     *testutils.MockEmbedder
		driver       *testutils.MockVectorDriver
		generator    *testutils.MockGenerator
		orchestrator *rag.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		generator = testutils.NewMockGenerator("Mitosis produces two identical cells [bio.pdf].")

		var err error
		orchestrator, err = rag.NewOrchestrator(rag.OrchestratorConfig{
			Retriever: rag.NewRetriever(rag.RetrieverConfig{Embedder: embedder, Driver: driver}),
			Generator: generator,
			TopK:      5,
			MinScore:  0.3,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a blank question", func() {
		_, err := orchestrator.Answer(ctx, "   ")
		Expect(err).To(MatchError(rag.ErrValidation))
		Expect(embedder.Calls()).To(BeEmpty())
	})

	It("answers with the fallback and no sources when nothing is retrieved", func() {
		answer, err := orchestrator.Answer(ctx, "what is mitosis?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal(rag.NoRelevantInformation))
		Expect(answer.Sources).NotTo(BeNil())
		Expect(answer.Sources).To(BeEmpty())
		Expect(generator.Calls()).To(Equal(0))
	})

	It("falls back when retrieval fails", func() {
		driver.SearchErr = errors.New("index down")

		answer, err := orchestrator.Answer(ctx, "what is mitosis?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal(rag.NoRelevantInformation))
		Expect(generator.Calls()).To(Equal(0))
	})

	Context("with relevant chunks", func() {
		BeforeEach(func() {
			driver.Results = []vector.Result{
				hit("bio.pdf", 4, "Mitosis yields two daughter cells.", 0.92),
				hit("notes.md", 1, "Meiosis yields four.", 0.71),
				hit("bio.pdf", 5, "Cytokinesis follows mitosis.", 0.55),
			}
		})

		It("calls the generator once with the grounded prompt", func() {
			answer, err := orchestrator.Answer(ctx, "what is mitosis?")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer.Text).To(Equal("Mitosis produces two identical cells [bio.pdf]."))
			Expect(answer.Sources).To(Equal([]string{"bio.pdf", "notes.md"}))

			Expect(generator.Calls()).To(Equal(1))
			prompt := generator.LastPrompt()
			Expect(prompt).To(ContainSubstring("Source: bio.pdf, Chunk: 4\nMitosis yields two daughter cells."))
			Expect(prompt).To(ContainSubstring("Source: notes.md, Chunk: 1\nMeiosis yields four."))
			Expect(prompt).To(ContainSubstring("Question: what is mitosis?"))
			Expect(prompt).To(ContainSubstring("If the context doesn't contain enough information, say so"))
		})

		It("wraps generator failures in ErrGeneration", func() {
			generator.Err = errors.New("rate limited")

			answer, err := orchestrator.Answer(ctx, "what is mitosis?")
			Expect(answer).To(BeNil())
			Expect(err).To(MatchError(rag.ErrGeneration))
			Expect(err.Error()).NotTo(ContainSubstring(rag.NoRelevantInformation))
		})
	})
})

var _ = Describe("Prompt", func() {
	It("renders the default template", func() {
		p, err := rag.NewPrompt("")
		Expect(err).NotTo(HaveOccurred())

		out, err := p.Render("Source: a.txt, Chunk: 0\nctx", "why?")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("You are a helpful study assistant."))
		Expect(out).To(ContainSubstring("Context from documents:\nSource: a.txt, Chunk: 0\nctx\n\nQuestion: why?"))
		Expect(out).To(HaveSuffix("Answer:"))
	})

	It("accepts a custom template", func() {
		p, err := rag.NewPrompt("Q={{.question}} C={{.context}}")
		Expect(err).NotTo(HaveOccurred())

		out, err := p.Render("c", "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Q=q C=c"))
	})

	It("rejects a template that references unknown slots", func() {
		_, err := rag.NewPrompt("{{.history}}")
		Expect(err).To(MatchError(rag.ErrValidation))
	})
})

var _ = Describe("NewOrchestrator defaults", func() {
	It("retrieves with the default k and similarity floor when unset", func() {
		driver := testutils.NewMockVectorDriver()
		orchestrator, err := rag.NewOrchestrator(rag.OrchestratorConfig{
			Retriever: rag.NewRetriever(rag.RetrieverConfig{Embedder: testutils.NewMockEmbedder(), Driver: driver}),
			Generator: testutils.NewMockGenerator("unused"),
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = orchestrator.Answer(context.Background(), "anything indexed?")
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.Searches()).To(HaveLen(1))
		Expect(driver.Searches()[0].K).To(Equal(rag.DefaultTopK))
		Expect(driver.Searches()[0].MinScore).To(Equal(rag.DefaultMinScore))
	})
})
