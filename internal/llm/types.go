package llm

import (
	"encoding/json"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Message is a chat completion message in the GigaChat REST format.
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	Attachments  []string      `json:"attachments,omitempty"`
}

type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsObject returns the call arguments as a JSON object. Some providers
// send arguments as an encoded string rather than an object.
func (f *FunctionCall) ArgumentsObject() json.RawMessage {
	if len(f.Arguments) == 0 {
		return json.RawMessage("{}")
	}
	var s string
	if err := json.Unmarshal(f.Arguments, &s); err == nil {
		return json.RawMessage(s)
	}
	return f.Arguments
}

// Function describes a callable tool to the model.
type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type ChatRequest struct {
	Model        string     `json:"model"`
	Messages     []Message  `json:"messages"`
	Functions    []Function `json:"functions,omitempty"`
	FunctionCall string     `json:"function_call,omitempty"`
	Temperature  float64    `json:"temperature,omitempty"`
	Stream       bool       `json:"stream"`
}

type ChatResponse struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// StatusError is a non-2xx response from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}
