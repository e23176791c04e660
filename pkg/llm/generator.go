// Package llm defines the generation capability and the provider-agnostic
// chat types shared by the provider clients under pkg/llm/provider.
package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")

	// ErrProvider wraps failures reported by a model provider.
	ErrProvider = errors.New("llm provider error")
)

// Generator produces a completion for a single rendered prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chatter sends a full chat request to a model provider.
type Chatter interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Complete runs prompt through c as a single user message and returns the
// trimmed text of the reply.
func Complete(ctx context.Context, c Chatter, prompt string) (string, error) {
	resp, err := c.Chat(ctx, NewPromptRequest(prompt))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Message.GetText())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
