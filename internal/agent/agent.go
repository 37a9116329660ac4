package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rag-assistant/internal/llm"
	"rag-assistant/internal/models"
	"rag-assistant/internal/monitoring"
	"rag-assistant/internal/tools"

	"go.uber.org/zap"
)

const (
	MsgServiceError  = "Sorry, I could not process this request because the language model service is unavailable."
	MsgMaxIterations = "Sorry, I could not finish this request within the allowed number of steps."
)

var ErrMaxIterations = errors.New("agent exceeded the maximum number of tool calls")

const systemPrompt = `You are an expert AI assistant specializing in Communication Engineering.
Your primary goal is to assist users by analyzing technical documents and performing relevant calculations.
You have access to a specialized set of tools. %s

Operational guide:

1. General questions: use the knowledge_base_qa tool to answer questions about the contents of the documents. It is your primary tool for information retrieval.
2. Summarization: use the summarize_document tool ONLY when the user explicitly asks for a summary of a specific file.
3. Calculations such as a link budget are multi-step:
   A. Identify the parameters the calculation needs (distance, power, gains, losses, frequency).
   B. If the user did not provide all of them, use extract_technical_specifications to find the missing values in the uploaded documents, once per document if needed.
   C. When every parameter is known, call calculate_link_budget.
   D. Present the results clearly and list the parameters used.

Always be professional and concise, and cite the source document for any data you extract.`

type ChatModel interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// KnowledgeBase is the state the agent needs to describe the session.
type KnowledgeBase interface {
	Ready() bool
	FileNames() []string
}

// Step records one tool call made while answering.
type Step struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
	Result    json.RawMessage `json:"result"`
	Failed    bool            `json:"failed"`
}

type Reply struct {
	Text  string `json:"answer"`
	Steps []Step `json:"steps"`
}

// Agent runs a bounded function-calling loop over a tool registry.
type Agent struct {
	model         ChatModel
	registry      *tools.Registry
	kb            KnowledgeBase
	maxIterations int
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

func New(model ChatModel, registry *tools.Registry, kb KnowledgeBase, maxIterations int, metrics *monitoring.Metrics, logger *zap.Logger) *Agent {
	if maxIterations <= 0 {
		maxIterations = 6
	}
	return &Agent{
		model:         model,
		registry:      registry,
		kb:            kb,
		maxIterations: maxIterations,
		metrics:       metrics,
		logger:        logger,
	}
}

// Invoke answers query, calling tools as the model requests. Reply.Text is
// always presentable; the error explains a degraded reply.
func (a *Agent) Invoke(ctx context.Context, query string, history []models.ChatMessage) (Reply, error) {
	a.metrics.Query("agent")
	ready := a.kb.Ready()
	available := a.registry.Available(ready)

	functions := make([]llm.Function, 0, len(available))
	for _, t := range available {
		functions = append(functions, llm.Function{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt(ready)})
	for _, h := range history {
		role := llm.RoleUser
		if h.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	var reply Reply
	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.model.Chat(ctx, llm.ChatRequest{
			Messages:     messages,
			Functions:    functions,
			FunctionCall: "auto",
		})
		if err != nil {
			a.logger.Error("Agent model call failed", zap.Int("iteration", i), zap.Error(err))
			reply.Text = MsgServiceError
			return reply, fmt.Errorf("failed to call model: %w", err)
		}

		call := resp.Message.FunctionCall
		if call == nil {
			reply.Text = strings.TrimSpace(resp.Message.Content)
			a.logger.Info("Agent answered", zap.Int("iterations", i+1), zap.Int("tool_calls", len(reply.Steps)))
			return reply, nil
		}

		args := call.ArgumentsObject()
		result, failed := a.run(ctx, call.Name, args, ready)
		reply.Steps = append(reply.Steps, Step{Tool: call.Name, Arguments: args, Result: result, Failed: failed})

		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, FunctionCall: &llm.FunctionCall{Name: call.Name, Arguments: args}},
			llm.Message{Role: llm.RoleFunction, Name: call.Name, Content: string(result)},
		)
	}

	a.logger.Warn("Agent hit the iteration limit", zap.Int("max_iterations", a.maxIterations))
	reply.Text = MsgMaxIterations
	return reply, ErrMaxIterations
}

// run invokes one tool and encodes its outcome as the JSON object sent back
// to the model. Tool failures are reported to the model, not to the caller.
func (a *Agent) run(ctx context.Context, name string, args json.RawMessage, ready bool) (json.RawMessage, bool) {
	start := time.Now()
	out, err := a.invoke(ctx, name, args, ready)
	a.metrics.ToolCall(name, err)

	if err != nil {
		a.logger.Warn("Tool call failed", zap.String("tool", name), zap.Error(err))
		return encode(map[string]string{"error": err.Error()}), true
	}
	a.logger.Info("Tool call finished", zap.String("tool", name), zap.Duration("duration", time.Since(start)))

	if s, ok := out.(string); ok {
		return encode(map[string]string{"result": s}), false
	}
	return encode(out), false
}

func (a *Agent) invoke(ctx context.Context, name string, args json.RawMessage, ready bool) (any, error) {
	tool, err := a.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if tool.NeedsKnowledgeBase() && !ready {
		return nil, tools.ErrKnowledgeBaseDown
	}
	return tool.Invoke(ctx, args)
}

func (a *Agent) systemPrompt(ready bool) string {
	files := "No documents have been uploaded yet, so only calculations are available."
	if ready {
		files = "The user has uploaded the following files: " + strings.Join(a.kb.FileNames(), ", ")
	}
	return fmt.Sprintf(systemPrompt, files)
}

func encode(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "tool result could not be encoded: " + err.Error()})
	}
	return data
}
