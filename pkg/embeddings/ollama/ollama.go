// Package ollama embeds document chunks and questions through a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/embeddings"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	// DefaultEmbeddingModel is the model chunks and questions are embedded with.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is where a stock Ollama install listens.
	DefaultBaseURL = "http://localhost:11434"

	defaultTimeout = 2 * time.Minute
)

// Embedder turns chunk text and questions into vectors via POST /api/embed.
type Embedder struct {
	endpoint   string
	model      string
	dimensions int
	keepAlive  string
	client     *http.Client
}

// EmbedderConfig configures an Embedder. Zero values fall back to the
// package defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string

	// Dimensions, when set, is the vector width the index was created with.
	// Responses of any other width are rejected with vector.ErrDimensions.
	Dimensions int

	// KeepAlive is forwarded to Ollama to keep the model loaded between
	// ingests (e.g. "10m"). Empty leaves the server default.
	KeepAlive string

	Timeout time.Duration
}

type embedRequest struct {
	Model     string `json:"model"`
	Input     string `json:"input"`
	Truncate  bool   `json:"truncate"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbedder builds an Embedder from cfg.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %d", vector.ErrEmbedding, cfg.Dimensions)
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Embedder{
		endpoint:   base + "/api/embed",
		model:      model,
		dimensions: cfg.Dimensions,
		keepAlive:  cfg.KeepAlive,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Embed returns the embedding of text. Inputs longer than the model's
// context are truncated server side.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{
		Model:     e.model,
		Input:     text,
		Truncate:  true,
		KeepAlive: e.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %w", vector.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama at %s: %w", vector.ErrEmbedding, e.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: ollama returned status %d: %s",
			vector.ErrEmbedding, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", vector.ErrEmbedding, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: ollama: %s", vector.ErrEmbedding, out.Error)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: model %s returned no embedding", vector.ErrEmbedding, e.model)
	}

	emb := out.Embeddings[0]
	if e.dimensions > 0 && len(emb) != e.dimensions {
		return nil, fmt.Errorf("%w: %w: model %s returned %d, index expects %d",
			vector.ErrEmbedding, vector.ErrDimensions, e.model, len(emb), e.dimensions)
	}
	return emb, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
