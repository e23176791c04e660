package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docrag/pkg/rag"
)

// handleChatQuery handles POST /v1/chat/query.
func (s *Server) handleChatQuery(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		s.logger.Warn("empty question received")
		return c.Status(fiber.StatusBadRequest).JSON(ChatResponse{
			Answer:  msgInvalidQuestion,
			Sources: []string{},
		})
	}

	s.logger.Info("received chat query", "question", req.Question)

	answer, err := s.questions.Answer(c.UserContext(), req.Question)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, rag.ErrGeneration) {
			status = fiber.StatusBadGateway
		}
		if errors.Is(err, rag.ErrValidation) {
			status = fiber.StatusBadRequest
		}
		s.logger.Error("failed to process chat query", "error", err)
		return c.Status(status).JSON(ChatResponse{
			Answer:  msgAnswerFailed,
			Sources: []string{},
		})
	}

	return c.JSON(ChatResponse{
		Answer:  answer.Text,
		Sources: answer.Sources,
	})
}
