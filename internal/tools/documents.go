package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rag-assistant/internal/models"
)

const (
	KnowledgeQAName   = "knowledge_base_qa"
	SummarizeName     = "summarize_document"
	ExtractSpecsName  = "extract_technical_specifications"
	DefaultLanguage   = "English"
	DefaultInputLimit = 16000
)

// Answerer is the retrieval-augmented responder.
type Answerer interface {
	Answer(ctx context.Context, query string, history []models.ChatMessage) string
}

type KnowledgeQA struct {
	rag Answerer
}

func NewKnowledgeQA(rag Answerer) *KnowledgeQA { return &KnowledgeQA{rag: rag} }

func (*KnowledgeQA) Name() string { return KnowledgeQAName }

func (*KnowledgeQA) Description() string {
	return "Answers general questions using the uploaded documents. Use it for any question about " +
		"document content that is not an explicit summarization or calculation request."
}

func (*KnowledgeQA) NeedsKnowledgeBase() bool { return true }

func (*KnowledgeQA) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "A standalone question to answer from the knowledge base."}
  },
  "required": ["query"]
}`)
}

func (t *KnowledgeQA) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidArguments)
	}
	return t.rag.Answer(ctx, in.Query, nil), nil
}

type Summarizer struct {
	docs  Documents
	llm   Generator
	limit int
}

func NewSummarizer(docs Documents, llm Generator, limit int) *Summarizer {
	if limit <= 0 {
		limit = DefaultInputLimit
	}
	return &Summarizer{docs: docs, llm: llm, limit: limit}
}

func (*Summarizer) Name() string { return SummarizeName }

func (*Summarizer) Description() string {
	return "Generates a detailed summary of ONE specific document in the requested language. " +
		"The file name must match an uploaded file exactly."
}

func (*Summarizer) NeedsKnowledgeBase() bool { return true }

func (*Summarizer) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "file_name": {"type": "string", "description": "The exact file name of the document to summarize."},
    "language": {"type": "string", "description": "Language of the summary, e.g. 'English', 'Русский', 'italiano'. Defaults to English."}
  },
  "required": ["file_name"]
}`)
}

func (s *Summarizer) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		FileName string `json:"file_name"`
		Language string `json:"language"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return s.Summarize(ctx, in.FileName, in.Language)
}

// Summarize writes a summary of the named document entirely in language.
func (s *Summarizer) Summarize(ctx context.Context, name, language string) (string, error) {
	text, ok := s.docs.RawText(name)
	if !ok {
		return "", notFound(name, s.docs)
	}
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	system := fmt.Sprintf(`You are a professional document summarization expert.
The user requested the summary in "%[1]s". Write the ENTIRE response in %[1]s only.
Never mix languages and never add translations.

Create a comprehensive yet concise summary focusing on:
1. Main topics and key points
2. Important data, numbers and technical details
3. Conclusions and findings
4. Overall purpose and context of the document`, language)

	prompt := fmt.Sprintf("Summarize this document in %s only.\n\nDocument: %s\n\nContent:\n%s",
		language, name, truncate(text, s.limit))

	summary, err := s.llm.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", name, err)
	}
	return strings.TrimSpace(summary), nil
}

type SpecExtractor struct {
	docs  Documents
	llm   Generator
	limit int
}

func NewSpecExtractor(docs Documents, llm Generator, limit int) *SpecExtractor {
	if limit <= 0 {
		limit = DefaultInputLimit
	}
	return &SpecExtractor{docs: docs, llm: llm, limit: limit}
}

func (*SpecExtractor) Name() string { return ExtractSpecsName }

func (*SpecExtractor) Description() string {
	return "Extracts specific numerical or textual technical parameters from one document, for example " +
		"['Transmitter Power (dBm)', 'Antenna Gain (dBi)'] from 'site_A_specs.pdf'. Use it to gather inputs before a calculation. " +
		"Parameters that are not found are returned as null."
}

func (*SpecExtractor) NeedsKnowledgeBase() bool { return true }

func (*SpecExtractor) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "file_name": {"type": "string", "description": "The exact file name of the document to read."},
    "parameters_to_extract": {"type": "array", "items": {"type": "string"}, "description": "Names of the technical parameters to extract."}
  },
  "required": ["file_name", "parameters_to_extract"]
}`)
}

func (s *SpecExtractor) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		FileName   string   `json:"file_name"`
		Parameters []string `json:"parameters_to_extract"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return s.Extract(ctx, in.FileName, in.Parameters)
}

// Extract returns one entry per requested parameter, nil when the document
// does not state it.
func (s *SpecExtractor) Extract(ctx context.Context, name string, params []string) (map[string]any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: parameters_to_extract is empty", ErrInvalidArguments)
	}
	text, ok := s.docs.RawText(name)
	if !ok {
		return nil, notFound(name, s.docs)
	}

	prompt := fmt.Sprintf(`Given the following document text for '%s', extract the values for the following parameters:
%s

Return the result as a JSON object where the keys are the parameter names and the values are the extracted values.
If a parameter is not found, its value must be null.
Only return the JSON object, with no other text.

Document Text:
---
%s
---`, name, strings.Join(params, ", "), truncate(text, s.limit))

	raw, err := s.llm.Generate(ctx, "You extract structured data and reply with JSON only.", prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to extract parameters from %s: %w", name, err)
	}

	out := make(map[string]any, len(params))
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse extracted parameters for %s: %w", name, err)
	}
	for _, p := range params {
		if _, ok := out[p]; !ok {
			out[p] = nil
		}
	}
	return out, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
