// Package client is a small HTTP client for the docrag API used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/papercomputeco/docrag/api"
	apisearch "github.com/papercomputeco/docrag/api/search"
	"github.com/papercomputeco/docrag/pkg/storage"
)

// defaultTimeout leaves room for slow local models.
const defaultTimeout = 5 * time.Minute

// Client talks to one docrag API server.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a Client for the server at target.
func New(target string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Ask posts question to /v1/chat/query.
func (c *Client) Ask(ctx context.Context, question string) (*api.ChatResponse, error) {
	body, err := json.Marshal(api.ChatRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	out := &api.ChatResponse{}
	err = c.do(ctx, http.MethodPost, c.endpoint("/v1/chat/query", nil), "application/json", bytes.NewReader(body), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search runs a raw similarity search. A non-positive topK uses the
// server's default.
func (c *Client) Search(ctx context.Context, query string, topK int) (*apisearch.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	out := &apisearch.SearchOutput{}
	if err := c.do(ctx, http.MethodGet, c.endpoint("/v1/search", q), "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends data as a multipart upload named filename.
func (c *Client) Upload(ctx context.Context, filename string, data io.Reader) (*api.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	out := &api.UploadResponse{}
	if err := c.do(ctx, http.MethodPost, c.endpoint("/v1/documents", nil), mw.FormDataContentType(), &buf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments returns every document, newest first.
func (c *Client) ListDocuments(ctx context.Context) (*api.DocumentListResponse, error) {
	out := &api.DocumentListResponse{}
	if err := c.do(ctx, http.MethodGet, c.endpoint("/v1/documents", nil), "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument returns one document.
func (c *Client) GetDocument(ctx context.Context, id string) (*storage.Document, error) {
	out := &storage.Document{}
	if err := c.do(ctx, http.MethodGet, c.endpoint("/v1/documents/"+url.PathEscape(id), nil), "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDocument removes a document and its chunks.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint("/v1/documents/"+url.PathEscape(id), nil), "", nil, nil)
}

// ReindexDocument re-chunks and re-embeds a stored document.
func (c *Client) ReindexDocument(ctx context.Context, id string) (*storage.Document, error) {
	out := &storage.Document{}
	err := c.do(ctx, http.MethodPost, c.endpoint("/v1/documents/"+url.PathEscape(id)+"/reindex", nil), "", nil, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) endpoint(p string, q url.Values) string {
	u := *c.base
	u.Path = path.Join(u.Path, p)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to docrag API at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Code, e.Message)
}

// errorMessage pulls the human readable message out of an error body. Chat
// errors carry it in "answer", everything else in "error" or "message".
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Answer  string `json:"answer"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return string(data)
	}
	switch {
	case body.Error != "":
		return body.Error
	case body.Message != "":
		return body.Message
	case body.Answer != "":
		return body.Answer
	}
	return string(data)
}
