package api

import (
	"context"

	"github.com/papercomputeco/docrag/pkg/rag"
	"github.com/papercomputeco/docrag/pkg/storage"
)

// Questioner answers questions and runs raw similarity searches.
type Questioner interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
	Search(ctx context.Context, query string, k int) (rag.RetrievalResult, error)
}

// Documents manages uploaded documents.
type Documents interface {
	Upload(ctx context.Context, filename string, data []byte) (*storage.Document, error)
	Reindex(ctx context.Context, id string) (*storage.Document, error)
	List(ctx context.Context) ([]*storage.Document, error)
	Get(ctx context.Context, id string) (*storage.Document, error)
	Delete(ctx context.Context, id string) error
	MaxUploadBytes() int64
}

// ErrorResponse is the body of every non-chat error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatRequest is the body of POST /v1/chat/query.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is the reply to a chat query. Errors use the same shape
// with an explanatory answer and no sources.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// UploadResponse describes the outcome of an upload.
type UploadResponse struct {
	ID         string         `json:"id,omitempty"`
	Filename   string         `json:"filename"`
	FileType   string         `json:"file_type,omitempty"`
	FileSize   int64          `json:"file_size"`
	Status     storage.Status `json:"status,omitempty"`
	ChunkCount int            `json:"chunk_count"`
	Message    string         `json:"message"`
}

// DocumentListResponse is the body of GET /v1/documents.
type DocumentListResponse struct {
	Count     int                 `json:"count"`
	Documents []*storage.Document `json:"documents"`
}

const (
	msgInvalidQuestion = "Please provide a valid question."
	msgAnswerFailed    = "An error occurred while processing your question. Please try again."
	msgUploaded        = "File uploaded and processed successfully"
	msgIndexFailed     = "File uploaded but indexing failed; it can be re-indexed"
)
