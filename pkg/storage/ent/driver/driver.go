// Package entdriver
package entdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	entschema "entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/docrag/pkg/storage"
	"github.com/papercomputeco/docrag/pkg/storage/ent/schema"
)

// EntDriver provides storage operations on an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	Driver *entsql.Driver
}

var _ storage.Driver = (*EntDriver)(nil)

// Migrate creates or updates the document tables. Changes are append-only.
func (ed *EntDriver) Migrate(ctx context.Context) error {
	m, err := entschema.NewMigrate(ed.Driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Create(ctx, schema.Tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.Driver.Dialect())
}

// Put inserts doc or replaces the row with the same ID.
func (ed *EntDriver) Put(ctx context.Context, doc *storage.Document) error {
	if doc == nil {
		return errors.New("cannot store nil document")
	}
	if doc.ID == "" {
		return errors.New("document id is required")
	}

	query, args := ed.builder().
		Insert(schema.DocumentsTable).
		Columns(schema.ColumnsWithContent()...).
		Values(
			doc.ID,
			doc.Filename,
			doc.FileType,
			doc.FileSize,
			string(doc.Status),
			doc.ChunkCount,
			doc.Error,
			doc.UploadedAt.UTC(),
			doc.UpdatedAt.UTC(),
			doc.Content,
		).
		OnConflict(
			entsql.ConflictColumns(schema.ColumnID),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := ed.Driver.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("could not execute document upsert: %w", err)
	}
	return nil
}

// Get retrieves a document by ID, content included.
func (ed *EntDriver) Get(ctx context.Context, id string) (*storage.Document, error) {
	query, args := ed.builder().
		Select(schema.ColumnsWithContent()...).
		From(ed.builder().Table(schema.DocumentsTable)).
		Where(entsql.EQ(schema.ColumnID, id)).
		Query()

	docs, err := ed.query(ctx, query, args, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(docs) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}
	return docs[0], nil
}

// List returns every document, newest upload first.
func (ed *EntDriver) List(ctx context.Context) ([]*storage.Document, error) {
	query, args := ed.builder().
		Select(schema.DocumentColumns...).
		From(ed.builder().Table(schema.DocumentsTable)).
		OrderBy(entsql.Desc(schema.ColumnUploadedAt), entsql.Desc(schema.ColumnID)).
		Query()

	docs, err := ed.query(ctx, query, args, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document by ID.
func (ed *EntDriver) Delete(ctx context.Context, id string) error {
	query, args := ed.builder().
		Delete(schema.DocumentsTable).
		Where(entsql.EQ(schema.ColumnID, id)).
		Query()

	var res sql.Result
	if err := ed.Driver.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}

func (ed *EntDriver) query(ctx context.Context, query string, args []any, withContent bool) ([]*storage.Document, error) {
	var rows entsql.Rows
	if err := ed.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*storage.Document
	for rows.Next() {
		var (
			doc    storage.Document
			status string
		)
		dest := []any{
			&doc.ID,
			&doc.Filename,
			&doc.FileType,
			&doc.FileSize,
			&status,
			&doc.ChunkCount,
			&doc.Error,
			&doc.UploadedAt,
			&doc.UpdatedAt,
		}
		if withContent {
			dest = append(dest, &doc.Content)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Status = storage.Status(status)
		doc.UploadedAt = doc.UploadedAt.In(time.UTC)
		doc.UpdatedAt = doc.UpdatedAt.In(time.UTC)
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
