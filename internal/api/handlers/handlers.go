package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"rag-assistant/internal/dto"
	"rag-assistant/internal/knowledge"
	"rag-assistant/internal/models"
	"rag-assistant/internal/persistence"
	"rag-assistant/internal/service"
	"rag-assistant/internal/tools"

	"github.com/gofiber/fiber/v2"
)

// Assistant is the service surface the HTTP handlers need.
type Assistant interface {
	CreateKnowledgeBase(ctx context.Context, files []models.File) (*dto.IngestResponse, error)
	AddDocuments(ctx context.Context, files []models.File) (*dto.IngestResponse, error)
	DeleteDocument(ctx context.Context, name string) (bool, error)
	Documents() []dto.DocumentResponse
	Info(ctx context.Context) (models.KnowledgeBaseInfo, error)
	Reset(ctx context.Context) error
	Backup(name string) (*dto.BackupResponse, error)

	Ask(ctx context.Context, req dto.AskRequest) (*dto.AskResponse, error)
	Summarize(ctx context.Context, name, language string) (*dto.SummarizeResponse, error)
	ExtractSpecifications(ctx context.Context, req dto.ExtractSpecsRequest) (map[string]any, error)
	LinkBudget(args json.RawMessage) (tools.LinkBudgetResult, error)
	Tools() []dto.ToolInfo
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, tools.ErrInvalidArguments):
		return fiber.StatusBadRequest
	case errors.Is(err, tools.ErrDocumentNotFound), errors.Is(err, persistence.ErrNothingToBackup):
		return fiber.StatusNotFound
	case errors.Is(err, knowledge.ErrNotInitialized):
		return fiber.StatusConflict
	case errors.Is(err, knowledge.ErrNoProcessableFiles):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// pathName decodes the :name route parameter. File names may contain spaces
// and other escaped characters.
func pathName(c *fiber.Ctx) (string, error) {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", errors.New("empty name")
	}
	return name, nil
}
