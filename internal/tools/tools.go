package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrKnowledgeBaseDown = errors.New("knowledge base is not initialized")
)

// Tool is one capability offered to the model. Parameters is a JSON Schema
// object describing the arguments Invoke accepts.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	// NeedsKnowledgeBase reports whether the tool only works on a Ready base.
	NeedsKnowledgeBase() bool
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Documents is read access to registered documents' raw text.
type Documents interface {
	FileNames() []string
	RawText(name string) (string, bool)
}

type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// All returns tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Available returns the tools usable right now given the knowledge-base state.
func (r *Registry) Available(kbReady bool) []Tool {
	var out []Tool
	for _, t := range r.All() {
		if kbReady || !t.NeedsKnowledgeBase() {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func notFound(name string, docs Documents) error {
	return fmt.Errorf("%w: the file '%s' was not found. Available files: %s", ErrDocumentNotFound, name, joinNames(docs.FileNames()))
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
