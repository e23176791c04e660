// Package openai implements a chat client for OpenAI compatible chat
// completion APIs on top of go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI client.
type Config struct {
	// BaseURL overrides the API URL for compatible servers such as
	// OpenRouter or vLLM.
	BaseURL string
	Model   string
	APIKey  string
	Logger  *slog.Logger
}

// Provider talks to the chat completions endpoint.
type Provider struct {
	client *goopenai.Client
	model  string
	logger *slog.Logger
}

// New creates an OpenAI chat client.
func New(c Config) (*Provider, error) {
	if c.APIKey == "" {
		return nil, errors.New("openai provider requires an API key")
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	clientConfig := goopenai.DefaultConfig(strings.TrimPrefix(c.APIKey, "Bearer "))
	if c.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}

	return &Provider{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  c.Model,
		logger: c.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return "openai"
}

// Complete sends prompt as a single user message.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return llm.Complete(ctx, p, prompt)
}

// Chat sends a chat completion request and maps the first choice.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", llm.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", llm.ErrProvider)
	}

	choice := resp.Choices[0]
	result := &llm.ChatResponse{
		Model:      resp.Model,
		Message:    llm.NewTextMessage(choice.Message.Role, choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if resp.Created > 0 {
		result.CreatedAt = time.Unix(resp.Created, 0)
	}

	p.logger.Debug("openai chat completed",
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return result, nil
}

func (p *Provider) buildRequest(req *llm.ChatRequest) goopenai.ChatCompletionRequest {
	out := goopenai.ChatCompletionRequest{
		Model: req.Model,
		Stop:  req.Stop,
	}
	if out.Model == "" {
		out.Model = p.model
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}

	if req.System != "" {
		out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.GetText(),
		})
	}

	return out
}
