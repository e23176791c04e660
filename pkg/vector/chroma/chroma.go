// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing chunk embeddings.
	DefaultCollectionName = "docrag"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries is how many times to try reaching Chroma on startup.
	MaxRetries int

	// RetryDelay is the initial delay between startup attempts. It doubles
	// after every failure up to MaxRetryDelay.
	RetryDelay time.Duration

	// MaxRetryDelay caps the delay between startup attempts.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. Chroma is often started next
// to docrag, so resolving the collection is retried with backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var (
		collectionID string
		err          error
	)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err = d.getOrCreateCollection(context.Background())
		if err == nil {
			break
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: getting or creating collection %q after %d attempts: %w",
				vector.ErrConnection, collectionName, maxRetries, err)
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one
// using the cosine distance space.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+collectionsPath+"/"+d.collectionName, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	var collection chromaCollection
	err = d.post(ctx, collectionsPath, chromaCreateCollectionRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// post sends a JSON request to a Chroma endpoint and decodes the response
// into out when out is non-nil.
func (d *Driver) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// Upsert stores entries with their embeddings, chunk text and metadata.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(entries)),
		Embeddings: make([][]float32, len(entries)),
		Metadatas:  make([]map[string]any, len(entries)),
		Documents:  make([]string, len(entries)),
	}

	for i, e := range entries {
		reqBody.IDs[i] = e.ID
		reqBody.Embeddings[i] = e.Embedding
		reqBody.Documents[i] = e.Chunk.Text
		reqBody.Metadatas[i] = map[string]any{
			vector.MetaDocumentID:  e.Chunk.DocumentID,
			vector.MetaFilename:    e.Chunk.Filename,
			vector.MetaChunkIndex:  e.Chunk.Index,
			vector.MetaTotalChunks: e.Chunk.Total,
		}
	}

	if err := d.post(ctx, d.collectionPath("upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("upserting entries: %w", err)
	}

	d.logger.Debug("upserted entries to chroma", "count", len(entries))

	return nil
}

// Search queries the collection for the k nearest entries. Chroma has no
// similarity floor, so rows past 1 - minScore cosine distance are dropped here.
func (d *Driver) Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	var queryResp chromaQueryResponse
	err := d.post(ctx, d.collectionPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        k,
		Include:         []string{"metadatas", "documents", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return nil, nil
	}

	ids := queryResp.IDs[0]
	var (
		distances []float32
		metadatas []map[string]any
		documents []string
	)
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	results := make([]vector.Result, 0, len(ids))
	for i, id := range ids {
		if i >= len(distances) {
			break
		}

		score := 1 - distances[i]
		if score < minScore {
			continue
		}

		result := vector.Result{
			Entry: vector.Entry{ID: id},
			Score: score,
		}
		if i < len(metadatas) {
			result.Chunk = chunkFromMetadata(metadatas[i])
		} else {
			result.Chunk.Index = -1
		}
		if i < len(documents) {
			result.Chunk.Text = documents[i]
		}

		results = append(results, result)
	}

	d.logger.Debug("searched chroma", "results", len(results))

	return results, nil
}

// DeleteByDocument removes every record whose document_id metadata matches.
func (d *Driver) DeleteByDocument(ctx context.Context, documentID string) error {
	err := d.post(ctx, d.collectionPath("delete"), chromaDeleteRequest{
		Where: map[string]any{vector.MetaDocumentID: documentID},
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting entries for document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document entries from chroma", "document_id", documentID)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// chunkFromMetadata rebuilds chunk metadata from a Chroma metadata map. JSON
// numbers decode as float64. A missing chunk index is reported as -1.
func chunkFromMetadata(m map[string]any) chunker.Chunk {
	c := chunker.Chunk{Index: -1}
	if m == nil {
		return c
	}
	if v, ok := m[vector.MetaDocumentID].(string); ok {
		c.DocumentID = v
	}
	if v, ok := m[vector.MetaFilename].(string); ok {
		c.Filename = v
	}
	if v, ok := m[vector.MetaChunkIndex].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := m[vector.MetaTotalChunks].(float64); ok {
		c.Total = int(v)
	}
	return c
}
