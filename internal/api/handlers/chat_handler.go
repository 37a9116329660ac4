package handlers

import (
	"rag-assistant/internal/dto"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ChatHandler struct {
	assistant Assistant
	logger    *zap.Logger
}

func NewChatHandler(assistant Assistant, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		assistant: assistant,
		logger:    logger,
	}
}

// Chat godoc
// @Summary Ask the agent
// @Description Answer a question with the tool-calling agent. The conversation history is supplied by the client.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.AskRequest true "Question and history"
// @Success 200 {object} dto.AskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	return h.ask(c, dto.ModeAgent)
}

// Ask godoc
// @Summary Ask the knowledge base
// @Description Answer a question with plain retrieval-augmented generation and return the retrieved sources
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.AskRequest true "Question and history"
// @Success 200 {object} dto.AskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/ask [post]
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	return h.ask(c, dto.ModeRAG)
}

func (h *ChatHandler) ask(c *fiber.Ctx, mode string) error {
	var req dto.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Mode = mode

	resp, err := h.assistant.Ask(c.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.logger.Error("Failed to answer question", zap.Error(err))
			return c.Status(status).JSON(fiber.Map{
				"error": "Failed to answer question",
			})
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(resp)
}
