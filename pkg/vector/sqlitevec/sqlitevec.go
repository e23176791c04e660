// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docrag/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

var _ vector.Driver = (*Driver)(nil)

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	if c.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so entry IDs and the chunk
	// payload live in a mapping table keyed by the same rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id TEXT NOT NULL UNIQUE,
			document_id TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			text TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating entries table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_vec_entries_document_id ON vec_entries(document_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating document index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores entries with their embeddings.
// If an entry with the same ID already exists, it is replaced.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if uint(len(e.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				vector.ErrDimensions, e.ID, len(e.Embedding), d.dimensions)
		}
		embBlob := serializeFloat32(e.Embedding)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_entries WHERE entry_id = ?`, e.ID,
		).Scan(&existingRowID)

		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE vec_entries
				SET document_id = ?, filename = ?, chunk_index = ?, total_chunks = ?, text = ?
				WHERE rowid = ?`,
				e.Chunk.DocumentID, e.Chunk.Filename, e.Chunk.Index, e.Chunk.Total, e.Chunk.Text,
				existingRowID,
			); err != nil {
				return fmt.Errorf("updating entry %s: %w", e.ID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for entry %s: %w", e.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for entry %s: %w", e.ID, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx, `
				INSERT INTO vec_entries(entry_id, document_id, filename, chunk_index, total_chunks, text)
				VALUES (?, ?, ?, ?, ?, ?)`,
				e.ID, e.Chunk.DocumentID, e.Chunk.Filename, e.Chunk.Index, e.Chunk.Total, e.Chunk.Text,
			)
			if err != nil {
				return fmt.Errorf("inserting entry %s: %w", e.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for entry %s: %w", e.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for entry %s: %w", e.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted entries to sqlite-vec", "count", len(entries))

	return nil
}

// Search runs a KNN query through vec0 MATCH and keeps rows whose cosine
// distance is within 1 - minScore.
func (d *Driver) Search(ctx context.Context, embedding []float32, k int, minScore float32) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}

	maxDistance := 1.0 - float64(minScore)

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			e.entry_id,
			e.document_id,
			e.filename,
			e.chunk_index,
			e.total_chunks,
			e.text,
			knn.distance
		FROM (
			SELECT rowid, distance
			FROM vec_embeddings
			WHERE embedding MATCH ?
				AND k = ?
		) knn
		INNER JOIN vec_entries e ON e.rowid = knn.rowid
		WHERE knn.distance <= ?
		ORDER BY knn.distance
	`, serializeFloat32(embedding), k, maxDistance)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var (
			r        vector.Result
			distance float64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Chunk.DocumentID,
			&r.Chunk.Filename,
			&r.Chunk.Index,
			&r.Chunk.Total,
			&r.Chunk.Text,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}

		// cosine distance is 1 - cosine similarity
		r.Score = float32(1.0 - distance)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	d.logger.Debug("searched sqlite-vec", "results", len(results))

	return results, nil
}

// Get retrieves a single entry by ID without its embedding.
func (d *Driver) Get(ctx context.Context, id string) (*vector.Entry, error) {
	e := &vector.Entry{ID: id}
	err := d.db.QueryRowContext(ctx, `
		SELECT document_id, filename, chunk_index, total_chunks, text
		FROM vec_entries WHERE entry_id = ?`, id,
	).Scan(&e.Chunk.DocumentID, &e.Chunk.Filename, &e.Chunk.Index, &e.Chunk.Total, &e.Chunk.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return e, nil
}

// DeleteByDocument removes every entry that belongs to documentID.
func (d *Driver) DeleteByDocument(ctx context.Context, documentID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM vec_entries WHERE document_id = ?`, documentID,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_entries WHERE document_id = ?`, documentID,
	); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted document entries from sqlite-vec",
		"document_id", documentID,
		"count", len(rowIDs),
	)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}
