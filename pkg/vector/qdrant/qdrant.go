// Package qdrant provides a vector driver backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/vector"
)

const (
	defaultHost       = "localhost"
	defaultPort       = 6334
	defaultCollection = "docrag"

	// metaEntryID keeps the caller's entry ID when it is not a UUID and the
	// point ID had to be derived from it.
	metaEntryID = "entry_id"
)

// Driver implements vector.Driver against a Qdrant collection.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host of the Qdrant gRPC endpoint. Defaults to "localhost".
	Host string

	// Port of the Qdrant gRPC endpoint. Defaults to 6334.
	Port int

	// APIKey is sent with every request when set.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// CollectionName is created on first use. Defaults to "docrag".
	CollectionName string

	// Dimensions is the vector size of the collection.
	Dimensions uint
}

// NewDriver connects to Qdrant and makes sure the collection and its
// document_id payload index exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.CollectionName == "" {
		c.CollectionName = defaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   c.Port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: c.CollectionName,
		logger:     logger,
	}

	if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant vector driver initialized",
		"host", c.Host,
		"port", c.Port,
		"collection", c.CollectionName,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %w", vector.ErrConnection, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collection, err)
	}

	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		FieldName:      vector.MetaDocumentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("creating %s index: %w", vector.MetaDocumentID, err)
	}

	return nil
}

// Upsert stores entries as points. Writes wait for the server to apply them
// so a search issued right after sees the new chunks.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(e.ID),
			Vectors: qdrant.NewVectorsDense(e.Embedding),
			Payload: payload(e),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted entries to qdrant", "count", len(entries))

	return nil
}

// Search queries the nearest points and lets Qdrant drop those below
// minScore. With cosine distance Qdrant reports similarity directly.
func (d *Driver) Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Limit:          qdrant.PtrOf(uint64(k)),
		ScoreThreshold: qdrant.PtrOf(minScore),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.Result, 0, len(points))
	for _, p := range points {
		results = append(results, vector.Result{
			Entry: vector.Entry{
				ID:    entryID(p.GetId(), p.GetPayload()),
				Chunk: chunkFromPayload(p.GetPayload()),
			},
			Score: p.GetScore(),
		})
	}

	d.logger.Debug("searched qdrant", "results", len(results))

	return results, nil
}

// DeleteByDocument removes every point whose document_id payload matches.
func (d *Driver) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(vector.MetaDocumentID, documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("deleting points for document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document entries from qdrant", "document_id", documentID)

	return nil
}

// Close releases the gRPC connections.
func (d *Driver) Close() error {
	return d.client.Close()
}

// pointID maps an entry ID onto a Qdrant point ID. Qdrant only accepts UUIDs
// or unsigned integers, so other IDs are hashed into a stable UUID.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func entryID(id *qdrant.PointId, p map[string]*qdrant.Value) string {
	if v, ok := p[metaEntryID]; ok {
		return v.GetStringValue()
	}
	return id.GetUuid()
}

func payload(e vector.Entry) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		metaEntryID:            qdrant.NewValueString(e.ID),
		vector.MetaDocumentID:  qdrant.NewValueString(e.Chunk.DocumentID),
		vector.MetaFilename:    qdrant.NewValueString(e.Chunk.Filename),
		vector.MetaChunkIndex:  qdrant.NewValueInt(int64(e.Chunk.Index)),
		vector.MetaTotalChunks: qdrant.NewValueInt(int64(e.Chunk.Total)),
		vector.MetaText:        qdrant.NewValueString(e.Chunk.Text),
	}
}

func chunkFromPayload(p map[string]*qdrant.Value) chunker.Chunk {
	c := chunker.Chunk{
		DocumentID: p[vector.MetaDocumentID].GetStringValue(),
		Filename:   p[vector.MetaFilename].GetStringValue(),
		Text:       p[vector.MetaText].GetStringValue(),
		Index:      -1,
		Total:      int(p[vector.MetaTotalChunks].GetIntegerValue()),
	}
	if v, ok := p[vector.MetaChunkIndex]; ok {
		c.Index = int(v.GetIntegerValue())
	}
	return c
}
