package dto

const (
	ModeAgent = "agent"
	ModeRAG   = "rag"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history"`
	// Mode is "agent" (default) for tool-augmented answers or "rag" for plain retrieval.
	Mode string `json:"mode,omitempty"`
}

type SourceResponse struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type ToolStepResponse struct {
	Tool      string `json:"tool"`
	Arguments any    `json:"arguments"`
	Result    any    `json:"result"`
	Failed    bool   `json:"failed"`
}

type AskResponse struct {
	Answer  string             `json:"answer"`
	Mode    string             `json:"mode"`
	Sources []SourceResponse   `json:"sources,omitempty"`
	Steps   []ToolStepResponse `json:"steps,omitempty"`
}

type SummarizeRequest struct {
	FileName string `json:"file_name"`
	Language string `json:"language"`
}

type SummarizeResponse struct {
	FileName string `json:"file_name"`
	Language string `json:"language"`
	Summary  string `json:"summary"`
}
