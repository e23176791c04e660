package provider

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docrag/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/docrag/pkg/llm/provider/ollama"
	"github.com/papercomputeco/docrag/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// Config selects and configures a provider.
type Config struct {
	Type    string
	BaseURL string
	Model   string
	APIKey  string
	Logger  *slog.Logger
}

// New creates a new Provider instance for the given provider type.
// Returns an error if the provider type is not recognized.
func New(c Config) (Provider, error) {
	switch c.Type {
	case Anthropic:
		return anthropic.New(anthropic.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			APIKey:  c.APIKey,
			Logger:  c.Logger,
		})
	case OpenAI:
		return openai.New(openai.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			APIKey:  c.APIKey,
			Logger:  c.Logger,
		})
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Logger:  c.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", c.Type, SupportedProviders())
	}
}
