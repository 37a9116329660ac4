package llm

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("language model is disabled")

// Offline stands in for the client when LLM_PROVIDER=none. Every call fails
// with ErrDisabled so callers degrade to their service-error text.
type Offline struct{}

func (Offline) Generate(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

func (Offline) Chat(context.Context, ChatRequest) (*ChatResponse, error) {
	return nil, ErrDisabled
}
