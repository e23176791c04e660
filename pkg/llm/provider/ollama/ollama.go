// Package ollama implements a chat client for Ollama's /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"
)

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL string
	Model   string

	// Timeout bounds a whole generation. Defaults to five minutes since
	// local models can be slow to load.
	Timeout time.Duration

	Logger *slog.Logger
}

// Provider talks to an Ollama server.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Ollama chat client.
func New(c Config) (*Provider, error) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Provider{
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		model:      c.Model,
		httpClient: &http.Client{Timeout: c.Timeout},
		logger:     c.Logger,
	}, nil
}

func (p *Provider) Name() string {
	return "ollama"
}

// Complete sends prompt as a single user message.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return llm.Complete(ctx, p, prompt)
}

// Chat sends a non-streaming chat request.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", llm.ErrProvider, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ollama response: %w", llm.ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrProvider, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrProvider, resp.StatusCode, string(payload))
	}

	result, err := parseResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrProvider, err)
	}

	p.logger.Debug("ollama chat completed",
		"model", result.Model,
		"duration", time.Since(start),
	)

	return result, nil
}

func (p *Provider) buildRequest(req *llm.ChatRequest) *ollamaRequest {
	stream := false
	out := &ollamaRequest{
		Model:  req.Model,
		Stream: &stream,
	}
	if out.Model == "" {
		out.Model = p.model
	}

	if req.System != "" {
		out.Messages = append(out.Messages, ollamaMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, ollamaMessage{
			Role:    msg.Role,
			Content: msg.GetText(),
		})
	}

	if req.Temperature != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		out.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}

	return out
}

func parseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}

	// Map Ollama metrics to common Usage format
	var usage *llm.Usage
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 || resp.TotalDuration > 0 {
		usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			TotalDurationNs:  resp.TotalDuration,
		}
	}

	stopReason := resp.DoneReason
	if stopReason == "" && resp.Done {
		stopReason = "stop"
	}

	return &llm.ChatResponse{
		Model:      resp.Model,
		CreatedAt:  resp.CreatedAt,
		Message:    llm.NewTextMessage(resp.Message.Role, resp.Message.Content),
		StopReason: stopReason,
		Usage:      usage,
	}, nil
}
