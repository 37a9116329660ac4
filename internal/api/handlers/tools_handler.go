package handlers

import (
	"bytes"
	"encoding/json"

	"rag-assistant/internal/dto"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ToolsHandler struct {
	assistant Assistant
	logger    *zap.Logger
}

func NewToolsHandler(assistant Assistant, logger *zap.Logger) *ToolsHandler {
	return &ToolsHandler{
		assistant: assistant,
		logger:    logger,
	}
}

// ListTools godoc
// @Summary List agent tools
// @Description Names, descriptions and JSON parameter schemas of the agent tools
// @Tags tools
// @Produce json
// @Success 200 {array} dto.ToolInfo
// @Router /api/v1/tools [get]
func (h *ToolsHandler) ListTools(c *fiber.Ctx) error {
	return c.JSON(h.assistant.Tools())
}

// Summarize godoc
// @Summary Summarize a document
// @Description Summarize one registered document in the requested language
// @Tags tools
// @Accept json
// @Produce json
// @Param name path string true "File name"
// @Param request body dto.SummarizeRequest false "Summary language, defaults to English"
// @Success 200 {object} dto.SummarizeResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/documents/{name}/summary [post]
func (h *ToolsHandler) Summarize(c *fiber.Ctx) error {
	name, err := pathName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file name",
		})
	}
	var req dto.SummarizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	resp, err := h.assistant.Summarize(c.Context(), name, req.Language)
	if err != nil {
		return h.fail(c, "Failed to summarize document", err)
	}
	return c.JSON(resp)
}

// ExtractSpecifications godoc
// @Summary Extract technical parameters
// @Description Extract named parameters from one document. Parameters that are not found are null.
// @Tags tools
// @Accept json
// @Produce json
// @Param name path string true "File name"
// @Param request body dto.ExtractSpecsRequest true "Parameters to extract"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{name}/specifications [post]
func (h *ToolsHandler) ExtractSpecifications(c *fiber.Ctx) error {
	name, err := pathName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file name",
		})
	}
	var req dto.ExtractSpecsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.FileName = name

	out, err := h.assistant.ExtractSpecifications(c.Context(), req)
	if err != nil {
		return h.fail(c, "Failed to extract specifications", err)
	}
	return c.JSON(out)
}

// LinkBudget godoc
// @Summary Calculate a link budget
// @Description EIRP, free space path loss and received power for a point-to-point link, plus the margin when the receiver sensitivity is given
// @Tags tools
// @Accept json
// @Produce json
// @Param request body tools.LinkBudgetInput true "Link parameters"
// @Success 200 {object} tools.LinkBudgetResult
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/tools/link-budget [post]
func (h *ToolsHandler) LinkBudget(c *fiber.Ctx) error {
	body := bytes.TrimSpace(c.Body())
	if !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res, err := h.assistant.LinkBudget(json.RawMessage(body))
	if err != nil {
		return h.fail(c, "Failed to calculate link budget", err)
	}
	return c.JSON(res)
}

func (h *ToolsHandler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": msg,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
