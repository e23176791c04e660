package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a document upload or
	// re-index finishes, whether indexing succeeded or failed.
	EventTypeDocumentIndexed = "docrag.document.indexed"

	// EventTypeDocumentDeleted is emitted after a document and its chunks
	// are removed.
	EventTypeDocumentDeleted = "docrag.document.deleted"
)

// DocumentEvent is a transport-neutral event payload for a document change.
type DocumentEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Document      DocumentMeta `json:"document"`
	DurationMs    int64        `json:"duration_ms,omitempty"`
}

// EventSource identifies the emitting service.
type EventSource struct {
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// DocumentMeta carries the document fields consumers need.
type DocumentMeta struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	Status     string `json:"status,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}

// NewDocumentEvent stamps a v1 event with a fresh ID and the current time.
func NewDocumentEvent(eventType string, source EventSource, doc DocumentMeta) *DocumentEvent {
	return &DocumentEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Document:      doc,
	}
}
