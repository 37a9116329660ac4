package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"rag-assistant/internal/dto"
	"rag-assistant/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const filesField = "files"

type DocumentHandler struct {
	assistant Assistant
	logger    *zap.Logger
}

func NewDocumentHandler(assistant Assistant, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		assistant: assistant,
		logger:    logger,
	}
}

// CreateKnowledgeBase godoc
// @Summary Create the knowledge base
// @Description Replace the knowledge base with the uploaded PDF, DOCX and TXT files
// @Tags knowledge-base
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Documents to ingest (repeat the field for several files)"
// @Success 201 {object} dto.IngestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base [post]
func (h *DocumentHandler) CreateKnowledgeBase(c *fiber.Ctx) error {
	files, err := readFiles(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.assistant.CreateKnowledgeBase(c.Context(), files)
	if err != nil {
		return h.fail(c, "Failed to create knowledge base", err, resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// AddDocuments godoc
// @Summary Add documents
// @Description Add files to an existing knowledge base. Files whose names are already registered are skipped.
// @Tags knowledge-base
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Documents to ingest"
// @Success 200 {object} dto.IngestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base/documents [post]
func (h *DocumentHandler) AddDocuments(c *fiber.Ctx) error {
	files, err := readFiles(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.assistant.AddDocuments(c.Context(), files)
	if err != nil {
		return h.fail(c, "Failed to add documents", err, resp)
	}
	return c.JSON(resp)
}

// DeleteDocument godoc
// @Summary Delete a document
// @Description Remove one document and rebuild the index from the remaining ones
// @Tags knowledge-base
// @Produce json
// @Param name path string true "File name"
// @Success 200 {object} dto.DeleteDocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base/documents/{name} [delete]
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	name, err := pathName(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file name",
		})
	}

	deleted, err := h.assistant.DeleteDocument(c.Context(), name)
	if err != nil {
		return h.fail(c, "Failed to delete document", err, nil)
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("Document %s not found", name),
		})
	}
	return c.JSON(dto.DeleteDocumentResponse{Name: name, Deleted: true})
}

// ListDocuments godoc
// @Summary List documents
// @Description Registered documents in ingestion order
// @Tags knowledge-base
// @Produce json
// @Success 200 {array} dto.DocumentResponse
// @Router /api/v1/knowledge-base/documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	return c.JSON(h.assistant.Documents())
}

// Info godoc
// @Summary Knowledge base info
// @Description State, file names, chunk count and storage size
// @Tags knowledge-base
// @Produce json
// @Success 200 {object} models.KnowledgeBaseInfo
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base [get]
func (h *DocumentHandler) Info(c *fiber.Ctx) error {
	info, err := h.assistant.Info(c.Context())
	if err != nil {
		h.logger.Error("Failed to read knowledge base info", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read knowledge base info",
		})
	}
	return c.JSON(info)
}

// Reset godoc
// @Summary Reset the knowledge base
// @Description Delete every document, the index and the persisted snapshot
// @Tags knowledge-base
// @Success 204
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base [delete]
func (h *DocumentHandler) Reset(c *fiber.Ctx) error {
	if err := h.assistant.Reset(c.Context()); err != nil {
		return h.fail(c, "Failed to reset knowledge base", err, nil)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Backup godoc
// @Summary Back up the knowledge base
// @Description Copy the persisted snapshot to the backup directory
// @Tags knowledge-base
// @Accept json
// @Produce json
// @Param request body dto.BackupRequest false "Backup name, defaults to a timestamp"
// @Success 201 {object} dto.BackupResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/knowledge-base/backup [post]
func (h *DocumentHandler) Backup(c *fiber.Ctx) error {
	var req dto.BackupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	resp, err := h.assistant.Backup(req.Name)
	if err != nil {
		return h.fail(c, "Failed to back up knowledge base", err, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// fail writes err with its mapped status. A partial ingest response is
// returned alongside the error so clients still see which files failed.
func (h *DocumentHandler) fail(c *fiber.Ctx, msg string, err error, partial *dto.IngestResponse) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"error": msg,
		})
	}
	body := fiber.Map{"error": err.Error()}
	if partial != nil && len(partial.FailedFiles) > 0 {
		body["failed_files"] = partial.FailedFiles
	}
	return c.Status(status).JSON(body)
}

func readFiles(c *fiber.Ctx) ([]models.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("multipart form with a %q field is required", filesField)
	}
	headers := form.File[filesField]
	if len(headers) == 0 {
		return nil, fmt.Errorf("at least one file is required in %q", filesField)
	}

	files := make([]models.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, models.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
