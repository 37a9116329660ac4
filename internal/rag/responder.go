package rag

import (
	"context"
	"fmt"
	"strings"

	"rag-assistant/internal/models"
	"rag-assistant/internal/monitoring"

	"go.uber.org/zap"
)

const (
	MsgNotInitialized = "The knowledge base is not initialized. Please upload documents first."
	MsgServiceError   = "Sorry, the language model service is unavailable right now. Please try again later."
)

const contextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

const qaSystemPrompt = "You are an assistant for question-answering tasks over technical documents. " +
	"Answer the user's question based only on the following context. " +
	"If you don't know the answer, just say that you don't know. " +
	"When the answer comes from a specific document, mention its name."

type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Retriever interface {
	Ready() bool
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Answer is a generated reply plus the chunks it was grounded on.
type Answer struct {
	Text    string               `json:"answer"`
	Sources []models.ScoredChunk `json:"sources"`
}

type Responder struct {
	llm           Generator
	kb            Retriever
	topK          int
	historyWindow int
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

func NewResponder(llm Generator, kb Retriever, topK, historyWindow int, metrics *monitoring.Metrics, logger *zap.Logger) *Responder {
	if topK <= 0 {
		topK = 8
	}
	if historyWindow < 0 {
		historyWindow = 0
	}
	return &Responder{llm: llm, kb: kb, topK: topK, historyWindow: historyWindow, metrics: metrics, logger: logger}
}

// Answer returns the reply text. Failures are reported as user-facing text.
func (r *Responder) Answer(ctx context.Context, query string, history []models.ChatMessage) string {
	ans, _ := r.AnswerWithSources(ctx, query, history)
	return ans.Text
}

// AnswerWithSources returns the reply and its retrieval context. The error is
// for logging and status codes only; Text is always safe to show.
func (r *Responder) AnswerWithSources(ctx context.Context, query string, history []models.ChatMessage) (Answer, error) {
	r.metrics.Query("rag")
	if !r.kb.Ready() {
		return Answer{Text: MsgNotInitialized}, fmt.Errorf("knowledge base is not initialized")
	}

	standalone := r.contextualize(ctx, query, history)

	hits, err := r.kb.Search(ctx, standalone, r.topK)
	if err != nil {
		r.logger.Error("Retrieval failed", zap.String("query", standalone), zap.Error(err))
		return Answer{Text: MsgServiceError}, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	prompt := buildPrompt(hits, history[max(0, len(history)-r.historyWindow):], query)
	text, err := r.llm.Generate(ctx, qaSystemPrompt, prompt)
	if err != nil {
		r.logger.Error("Answer generation failed", zap.Error(err))
		return Answer{Text: MsgServiceError, Sources: hits}, fmt.Errorf("failed to generate answer: %w", err)
	}

	r.logger.Info("Question answered",
		zap.Int("retrieved", len(hits)),
		zap.Bool("contextualized", standalone != query),
	)
	return Answer{Text: strings.TrimSpace(text), Sources: hits}, nil
}

// contextualize rewrites a follow-up into a standalone question. Without
// history, or when the rewrite fails, the query is used as is.
func (r *Responder) contextualize(ctx context.Context, query string, history []models.ChatMessage) string {
	if len(history) == 0 || r.historyWindow == 0 {
		return query
	}
	recent := history[max(0, len(history)-r.historyWindow):]

	var b strings.Builder
	b.WriteString("Chat history:\n")
	writeHistory(&b, recent)
	b.WriteString("\nLatest question: ")
	b.WriteString(query)

	rewritten, err := r.llm.Generate(ctx, contextualizePrompt, b.String())
	if err != nil {
		r.logger.Warn("Question contextualization failed, using raw query", zap.Error(err))
		return query
	}
	if rewritten = strings.TrimSpace(rewritten); rewritten == "" {
		return query
	}
	return rewritten
}

func buildPrompt(hits []models.ScoredChunk, history []models.ChatMessage, query string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "[Source: %s]\n%s\n\n", h.Source, h.Content)
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		writeHistory(&b, history)
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

func writeHistory(b *strings.Builder, history []models.ChatMessage) {
	for _, m := range history {
		role := "User"
		if m.Role == models.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(b, "%s: %s\n", role, m.Content)
	}
}
