// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension over a pgx connection pool.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/papercomputeco/docrag/pkg/vector"
)

// Driver implements vector.Driver on a pgvector table.
type Driver struct {
	pool       *pgxpool.Pool
	table      string
	dimensions uint
	logger     *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the pgvector driver.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Table holds the chunk rows. Defaults to "docrag_chunks".
	Table string

	// Dimensions is the vector column size.
	Dimensions uint
}

// NewDriver opens a pool, enables the vector extension and creates the
// chunk table with an HNSW cosine index.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}
	if c.Table == "" {
		c.Table = "docrag_chunks"
	}

	// The extension has to exist before the codec lookup in AfterConnect.
	conn, err := pgx.Connect(ctx, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %w", vector.ErrConnection, err)
	}
	_, err = conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("enabling vector extension: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %w", vector.ErrConnection, err)
	}

	d := &Driver{
		pool:       pool,
		table:      pgx.Identifier{c.Table}.Sanitize(),
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := d.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("pgvector vector driver initialized",
		"table", c.Table,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, d.table, d.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS docrag_chunks_document_id_idx ON %s (document_id)`, d.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS docrag_chunks_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, d.table),
	}
	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrating pgvector table: %w", err)
		}
	}
	return nil
}

// Upsert writes all entries in a single batch.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, filename, chunk_index, total_chunks, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			filename = EXCLUDED.filename,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`, d.table)

	batch := &pgx.Batch{}
	for _, e := range entries {
		if uint(len(e.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				vector.ErrDimensions, e.ID, len(e.Embedding), d.dimensions)
		}
		batch.Queue(query,
			e.ID, e.Chunk.DocumentID, e.Chunk.Filename, e.Chunk.Index, e.Chunk.Total, e.Chunk.Text,
			pgv.NewVector(e.Embedding),
		)
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting entries: %w", err)
	}

	d.logger.Debug("upserted entries to pgvector", "count", len(entries))

	return nil
}

// Search orders by cosine distance and keeps rows whose similarity
// (1 - distance) is at least minScore.
func (d *Driver) Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}

	query := fmt.Sprintf(`
		SELECT id, document_id, filename, chunk_index, total_chunks, text, score
		FROM (
			SELECT id, document_id, filename, chunk_index, total_chunks, text,
				1 - (embedding <=> $1) AS score
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		) knn
		WHERE score >= $3
		ORDER BY score DESC`, d.table)

	rows, err := d.pool.Query(ctx, query, pgv.NewVector(embedding), k, float64(minScore))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			r     vector.Result
			score float64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Chunk.DocumentID,
			&r.Chunk.Filename,
			&r.Chunk.Index,
			&r.Chunk.Total,
			&r.Chunk.Text,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	d.logger.Debug("searched pgvector", "results", len(results))

	return results, nil
}

// DeleteByDocument removes every row for documentID.
func (d *Driver) DeleteByDocument(ctx context.Context, documentID string) error {
	tag, err := d.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, d.table), documentID,
	)
	if err != nil {
		return fmt.Errorf("deleting entries for document %s: %w", documentID, err)
	}

	d.logger.Debug("deleted document entries from pgvector",
		"document_id", documentID,
		"count", tag.RowsAffected(),
	)

	return nil
}

// Close releases the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}
