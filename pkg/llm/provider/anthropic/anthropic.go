// Package anthropic implements a chat client for Anthropic's Messages API
// through langchaingo.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcanthropic "github.com/tmc/langchaingo/llms/anthropic"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-haiku-latest"

	// defaultMaxTokens is required by the Messages API.
	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic client.
type Config struct {
	// BaseURL overrides the API URL. It must include the version path
	// (e.g., "https://api.anthropic.com/v1").
	BaseURL string
	Model   string
	APIKey  string
	Logger  *slog.Logger
}

// Provider talks to the Anthropic Messages API.
type Provider struct {
	client *lcanthropic.LLM
	model  string
	logger *slog.Logger
}

// New creates an Anthropic chat client.
func New(c Config) (*Provider, error) {
	if c.APIKey == "" {
		return nil, errors.New("anthropic provider requires an API key")
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	opts := []lcanthropic.Option{
		lcanthropic.WithToken(c.APIKey),
		lcanthropic.WithModel(c.Model),
	}
	if c.BaseURL != "" {
		opts = append(opts, lcanthropic.WithBaseURL(strings.TrimRight(c.BaseURL, "/")))
	}

	client, err := lcanthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating anthropic client: %w", err)
	}

	return &Provider{
		client: client,
		model:  c.Model,
		logger: c.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Complete sends prompt as a single user message.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return llm.Complete(ctx, p, prompt)
}

// Chat sends a Messages API request. Text from every returned content
// block is joined into one assistant message.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	opts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithMaxTokens(maxTokens),
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}

	resp, err := p.client.GenerateContent(ctx, buildMessages(req), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic: %w", llm.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: anthropic returned no content", llm.ErrProvider)
	}

	result := &llm.ChatResponse{
		Model:      model,
		Message:    llm.Message{Role: llm.RoleAssistant},
		StopReason: resp.Choices[0].StopReason,
	}
	for _, choice := range resp.Choices {
		if choice.Content == "" {
			continue
		}
		result.Message.Content = append(result.Message.Content, llm.ContentBlock{
			Type: "text",
			Text: choice.Content,
		})
	}
	result.Usage = usageFrom(resp.Choices[0].GenerationInfo)

	p.logger.Debug("anthropic chat completed",
		"model", model,
		"stop_reason", result.StopReason,
	)

	return result, nil
}

func buildMessages(req *llm.ChatRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, msg := range req.Messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		}
		messages = append(messages, llms.TextParts(role, msg.GetText()))
	}
	return messages
}

func usageFrom(info map[string]any) *llm.Usage {
	in, okIn := info["InputTokens"].(int)
	out, okOut := info["OutputTokens"].(int)
	if !okIn && !okOut {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}
}
