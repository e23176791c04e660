// Package provider holds the model provider clients used for answer
// generation and the factory that selects one from configuration.
package provider

import (
	"github.com/papercomputeco/docrag/pkg/llm"
)

// Provider is a chat client for one model provider's API. Each
// implementation translates llm.ChatRequest into its wire format and
// parses the reply back into llm.ChatResponse.
type Provider interface {
	llm.Chatter
	llm.Generator

	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama")
	Name() string
}
