package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docrag/api/mcp"
)

// uploadOverhead leaves room for multipart framing around the file itself.
const uploadOverhead = 1 << 20

// Server is the API server for the docrag system
type Server struct {
	config    Config
	questions Questioner
	documents Documents
	logger    *slog.Logger
	app       *fiber.App
}

// NewServer creates a new API server over the question and document
// services.
func NewServer(config Config, questions Questioner, documents Documents, logger *slog.Logger) (*Server, error) {
	if questions == nil {
		return nil, errors.New("question service is required")
	}
	if documents == nil {
		return nil, errors.New("document service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = documents.MaxUploadBytes()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(config.MaxUploadBytes) + uploadOverhead,
	})

	s := &Server{
		config:    config,
		questions: questions,
		documents: documents,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/documents", s.handleUpload)
	v1.Get("/documents", s.handleListDocuments)
	v1.Get("/documents/:id", s.handleGetDocument)
	v1.Delete("/documents/:id", s.handleDeleteDocument)
	v1.Post("/documents/:id/reindex", s.handleReindexDocument)
	v1.Post("/chat/query", s.handleChatQuery)
	v1.Get("/search", s.handleSearchEndpoint)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Questions: questions,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
