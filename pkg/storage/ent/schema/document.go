// Package schema declares the document metadata tables for ent's Atlas
// migrator.
package schema

import (
	"slices"

	"entgo.io/ent/dialect"
	entschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Column names of the documents table.
const (
	DocumentsTable = "documents"

	ColumnID         = "id"
	ColumnFilename   = "filename"
	ColumnFileType   = "file_type"
	ColumnFileSize   = "file_size"
	ColumnStatus     = "status"
	ColumnChunkCount = "chunk_count"
	ColumnError      = "error"
	ColumnUploadedAt = "uploaded_at"
	ColumnUpdatedAt  = "updated_at"
	ColumnContent    = "content"
)

// DocumentColumns lists the metadata columns in scan order. Content is
// selected separately.
var DocumentColumns = []string{
	ColumnID,
	ColumnFilename,
	ColumnFileType,
	ColumnFileSize,
	ColumnStatus,
	ColumnChunkCount,
	ColumnError,
	ColumnUploadedAt,
	ColumnUpdatedAt,
}

// ColumnsWithContent lists the metadata columns followed by content.
func ColumnsWithContent() []string {
	return append(slices.Clone(DocumentColumns), ColumnContent)
}

var (
	documentsColumns = []*entschema.Column{
		{Name: ColumnID, Type: field.TypeString},
		{Name: ColumnFilename, Type: field.TypeString},
		{Name: ColumnFileType, Type: field.TypeString},
		{Name: ColumnFileSize, Type: field.TypeInt64},
		{Name: ColumnStatus, Type: field.TypeString},
		{Name: ColumnChunkCount, Type: field.TypeInt, Default: 0},
		{Name: ColumnError, Type: field.TypeString, Default: ""},
		{Name: ColumnUploadedAt, Type: field.TypeTime},
		{Name: ColumnUpdatedAt, Type: field.TypeTime},
		{Name: ColumnContent, Type: field.TypeString, Default: "", SchemaType: map[string]string{
			dialect.SQLite:   "text",
			dialect.Postgres: "text",
		}},
	}

	// Documents holds document metadata, one row per upload.
	Documents = &entschema.Table{
		Name:       DocumentsTable,
		Columns:    documentsColumns,
		PrimaryKey: []*entschema.Column{documentsColumns[0]},
		Indexes: []*entschema.Index{
			{
				Name:    "document_uploaded_at",
				Unique:  false,
				Columns: []*entschema.Column{documentsColumns[7]},
			},
		},
	}

	// Tables are migrated on driver start.
	Tables = []*entschema.Table{
		Documents,
	}
)
