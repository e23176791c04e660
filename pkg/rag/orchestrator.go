package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
)

// NoRelevantInformation is the answer given when retrieval finds nothing.
const NoRelevantInformation = "I couldn't find any relevant information in your uploaded documents to answer this question. Please try uploading more documents or rephrasing your question."

// Answer is the reply to a question.
type Answer struct {
	// Text is the generated answer or NoRelevantInformation.
	Text string `json:"answer"`

	// Sources are the distinct filenames of the retrieved chunks in
	// first-appearance order. Empty, never nil, when nothing was found.
	Sources []string `json:"sources"`
}

// OrchestratorConfig holds the collaborators and settings of an Orchestrator.
type OrchestratorConfig struct {
	Retriever *Retriever
	Generator llm.Generator
	Prompt    *Prompt
	TopK      int
	MinScore  float32
	Logger    *slog.Logger
}

// Orchestrator answers questions from retrieved document context.
type Orchestrator struct {
	retriever *Retriever
	generator llm.Generator
	prompt    *Prompt
	topK      int
	minScore  float32
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil prompt uses
// DefaultPromptTemplate.
func NewOrchestrator(c OrchestratorConfig) (*Orchestrator, error) {
	if c.Prompt == nil {
		p, err := NewPrompt("")
		if err != nil {
			return nil, err
		}
		c.Prompt = p
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MinScore <= 0 {
		c.MinScore = DefaultMinScore
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return &Orchestrator{
		retriever: c.Retriever,
		generator: c.Generator,
		prompt:    c.Prompt,
		topK:      c.TopK,
		minScore:  c.MinScore,
		logger:    c.Logger,
	}, nil
}

// Answer retrieves context for question and asks the generator once. When
// nothing relevant is retrieved the generator is not called and the answer
// is NoRelevantInformation with no sources.
func (o *Orchestrator) Answer(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrValidation)
	}

	results := o.retriever.Retrieve(ctx, question, o.topK, o.minScore)
	if len(results) == 0 {
		o.logger.Info("no relevant chunks for question")
		return &Answer{Text: NoRelevantInformation, Sources: []string{}}, nil
	}

	prompt, err := o.prompt.Render(Assemble(results), question)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering prompt: %w", ErrGeneration, err)
	}

	start := time.Now()
	text, err := o.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	sources := Sources(results)
	o.logger.Info("answered question",
		"chunks", len(results),
		"sources", len(sources),
		"duration", time.Since(start),
	)

	return &Answer{Text: text, Sources: sources}, nil
}
