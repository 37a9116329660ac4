package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rag-assistant/internal/agent"
	"rag-assistant/internal/dto"
	"rag-assistant/internal/knowledge"
	"rag-assistant/internal/models"
	"rag-assistant/internal/rag"
	"rag-assistant/internal/tools"

	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("invalid request")

// AssistantService is the single entry point for every client surface.
// Calls that mutate the knowledge base are serialized by knowledge.Manager.
type AssistantService struct {
	kb         *knowledge.Manager
	responder  *rag.Responder
	agent      *agent.Agent
	registry   *tools.Registry
	summarizer *tools.Summarizer
	extractor  *tools.SpecExtractor
	backupDir  string
	logger     *zap.Logger
}

func NewAssistantService(
	kb *knowledge.Manager,
	responder *rag.Responder,
	agent *agent.Agent,
	registry *tools.Registry,
	summarizer *tools.Summarizer,
	extractor *tools.SpecExtractor,
	backupDir string,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		kb:         kb,
		responder:  responder,
		agent:      agent,
		registry:   registry,
		summarizer: summarizer,
		extractor:  extractor,
		backupDir:  backupDir,
		logger:     logger,
	}
}

// Load restores the persisted knowledge base, if any.
func (s *AssistantService) Load(ctx context.Context) bool {
	return s.kb.Load(ctx)
}

func (s *AssistantService) CreateKnowledgeBase(ctx context.Context, files []models.File) (*dto.IngestResponse, error) {
	failed, err := s.kb.Create(ctx, files)
	if err != nil {
		return &dto.IngestResponse{FailedFiles: nonNil(failed)}, err
	}
	return s.ingestResponse(ctx, failed)
}

func (s *AssistantService) AddDocuments(ctx context.Context, files []models.File) (*dto.IngestResponse, error) {
	failed, err := s.kb.Add(ctx, files)
	if err != nil {
		return &dto.IngestResponse{FailedFiles: nonNil(failed)}, err
	}
	return s.ingestResponse(ctx, failed)
}

// Ingest creates the knowledge base when it is empty and extends it otherwise.
func (s *AssistantService) Ingest(ctx context.Context, files []models.File) (*dto.IngestResponse, error) {
	if s.kb.Ready() {
		return s.AddDocuments(ctx, files)
	}
	return s.CreateKnowledgeBase(ctx, files)
}

func (s *AssistantService) DeleteDocument(ctx context.Context, name string) (bool, error) {
	return s.kb.Delete(ctx, name)
}

// Ask answers a question. Model and retrieval failures are already turned
// into presentable text, so the error is only set for invalid requests.
func (s *AssistantService) Ask(ctx context.Context, req dto.AskRequest) (*dto.AskResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}
	history, err := toHistory(req.History)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case dto.ModeRAG:
		ans, err := s.responder.AnswerWithSources(ctx, query, history)
		if err != nil {
			s.logger.Warn("RAG answer degraded", zap.Error(err))
		}
		resp := &dto.AskResponse{Answer: ans.Text, Mode: dto.ModeRAG}
		for _, h := range ans.Sources {
			resp.Sources = append(resp.Sources, dto.SourceResponse{Source: h.Source, Content: h.Content, Score: h.Score})
		}
		return resp, nil
	case "", dto.ModeAgent:
		reply, err := s.agent.Invoke(ctx, query, history)
		if err != nil {
			s.logger.Warn("Agent answer degraded", zap.Error(err))
		}
		resp := &dto.AskResponse{Answer: reply.Text, Mode: dto.ModeAgent}
		for _, st := range reply.Steps {
			resp.Steps = append(resp.Steps, dto.ToolStepResponse{
				Tool:      st.Tool,
				Arguments: rawOrNil(st.Arguments),
				Result:    rawOrNil(st.Result),
				Failed:    st.Failed,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
}

func (s *AssistantService) Summarize(ctx context.Context, name, language string) (*dto.SummarizeResponse, error) {
	if !s.kb.Ready() {
		return nil, knowledge.ErrNotInitialized
	}
	if language == "" {
		language = tools.DefaultLanguage
	}
	summary, err := s.summarizer.Summarize(ctx, name, language)
	if err != nil {
		return nil, err
	}
	return &dto.SummarizeResponse{FileName: name, Language: language, Summary: summary}, nil
}

func (s *AssistantService) ExtractSpecifications(ctx context.Context, req dto.ExtractSpecsRequest) (map[string]any, error) {
	if !s.kb.Ready() {
		return nil, knowledge.ErrNotInitialized
	}
	return s.extractor.Extract(ctx, req.FileName, req.Parameters)
}

// LinkBudget runs the calculator directly on a JSON parameter object.
func (s *AssistantService) LinkBudget(args json.RawMessage) (tools.LinkBudgetResult, error) {
	in, err := tools.ParseLinkBudgetInput(args)
	if err != nil {
		return tools.LinkBudgetResult{}, err
	}
	return tools.CalculateLinkBudget(in)
}

func (s *AssistantService) Tools() []dto.ToolInfo {
	var out []dto.ToolInfo
	for _, t := range s.registry.All() {
		out = append(out, dto.ToolInfo{
			Name:               t.Name(),
			Description:        t.Description(),
			Parameters:         rawOrNil(t.Parameters()),
			NeedsKnowledgeBase: t.NeedsKnowledgeBase(),
		})
	}
	return out
}

func (s *AssistantService) Reset(ctx context.Context) error {
	if err := s.kb.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("Knowledge base reset")
	return nil
}

func (s *AssistantService) Info(ctx context.Context) (models.KnowledgeBaseInfo, error) {
	return s.kb.Info(ctx)
}

func (s *AssistantService) Documents() []dto.DocumentResponse {
	docs := s.kb.Documents()
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse(d))
	}
	return out
}

func (s *AssistantService) Backup(name string) (*dto.BackupResponse, error) {
	path, err := s.kb.Backup(s.backupDir, name)
	if err != nil {
		return nil, err
	}
	return &dto.BackupResponse{Path: path}, nil
}

func (s *AssistantService) ingestResponse(ctx context.Context, failed []string) (*dto.IngestResponse, error) {
	info, err := s.kb.Info(ctx)
	if err != nil {
		s.logger.Warn("Failed to read knowledge base info", zap.Error(err))
	}
	return &dto.IngestResponse{
		FailedFiles: nonNil(failed),
		Documents:   s.Documents(),
		Info:        info,
	}, nil
}

func toHistory(in []dto.ChatMessage) ([]models.ChatMessage, error) {
	out := make([]models.ChatMessage, 0, len(in))
	for i, m := range in {
		role := models.Role(m.Role)
		if role != models.RoleUser && role != models.RoleAssistant {
			return nil, fmt.Errorf("%w: history[%d] has role %q", ErrInvalidRequest, i, m.Role)
		}
		out = append(out, models.ChatMessage{Role: role, Content: m.Content})
	}
	return out, nil
}

func documentResponse(d models.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		Name:       d.Name,
		Status:     string(d.Status),
		Size:       d.Size,
		IngestedAt: d.IngestedAt.Format(time.RFC3339),
	}
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
