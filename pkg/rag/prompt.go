package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// DefaultPromptTemplate grounds the model in the retrieved context. It is a
// Go text/template with the "context" and "question" slots.
const DefaultPromptTemplate = `You are a helpful study assistant. Answer the question based on the context provided from the user's study documents.

Context from documents:
{{.context}}

Question: {{.question}}

Instructions:
- Answer the question based on the context provided above
- If the context doesn't contain enough information, say so
- Cite which document the information came from when possible
- Be concise but thorough

Answer:`

// Prompt renders the grounding prompt sent to the generator.
type Prompt struct {
	tmpl prompts.PromptTemplate
}

// NewPrompt parses template and checks that it renders. An empty template
// uses DefaultPromptTemplate.
func NewPrompt(template string) (*Prompt, error) {
	if template == "" {
		template = DefaultPromptTemplate
	}

	p := &Prompt{
		tmpl: prompts.NewPromptTemplate(template, []string{"context", "question"}),
	}
	if _, err := p.Render("", ""); err != nil {
		return nil, fmt.Errorf("%w: prompt template: %w", ErrValidation, err)
	}
	return p, nil
}

// Render fills the template with the assembled context and the question.
func (p *Prompt) Render(context, question string) (string, error) {
	return p.tmpl.Format(map[string]any{
		"context":  context,
		"question": question,
	})
}
