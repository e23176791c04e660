package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docrag/pkg/rag"
	"github.com/papercomputeco/docrag/pkg/storage"
)

// handleUpload handles POST /v1/documents with a multipart "file" field.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "multipart field \"file\" is required",
		})
	}

	rejected := func(status int, msg string) error {
		return c.Status(status).JSON(UploadResponse{
			Filename: header.Filename,
			FileSize: header.Size,
			Status:   "error",
			Message:  msg,
		})
	}

	if header.Size > s.config.MaxUploadBytes {
		return rejected(fiber.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
	}

	f, err := header.Open()
	if err != nil {
		return rejected(fiber.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return rejected(fiber.StatusBadRequest, "could not read uploaded file")
	}

	doc, err := s.documents.Upload(c.UserContext(), header.Filename, data)
	switch {
	case errors.Is(err, rag.ErrValidation):
		s.logger.Warn("rejected upload", "filename", header.Filename, "error", err)
		return rejected(fiber.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("failed to process upload", "filename", header.Filename, "error", err)
		return rejected(fiber.StatusInternalServerError, "Failed to process document")
	}

	msg := msgUploaded
	if doc.Status == storage.StatusFailed {
		msg = msgIndexFailed
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		Status:     doc.Status,
		ChunkCount: doc.ChunkCount,
		Message:    msg,
	})
}

// handleListDocuments handles GET /v1/documents, newest first.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	docs, err := s.documents.List(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list documents"})
	}
	if docs == nil {
		docs = []*storage.Document{}
	}

	return c.JSON(DocumentListResponse{
		Count:     len(docs),
		Documents: docs,
	})
}

// handleGetDocument handles GET /v1/documents/:id.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	doc, err := s.documents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.documentError(c, err, "failed to get document")
	}
	return c.JSON(doc)
}

// handleDeleteDocument handles DELETE /v1/documents/:id.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.documents.Delete(c.UserContext(), id); err != nil {
		return s.documentError(c, err, "failed to delete document")
	}
	return c.JSON(fiber.Map{"id": id, "message": "Document deleted successfully"})
}

// handleReindexDocument handles POST /v1/documents/:id/reindex.
func (s *Server) handleReindexDocument(c *fiber.Ctx) error {
	doc, err := s.documents.Reindex(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.documentError(c, err, "failed to reindex document")
	}
	return c.JSON(doc)
}

func (s *Server) documentError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "document not found"})
	}
	s.logger.Error(msg, "id", c.Params("id"), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}
