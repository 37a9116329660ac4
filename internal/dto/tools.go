package dto

type ExtractSpecsRequest struct {
	FileName   string   `json:"file_name"`
	Parameters []string `json:"parameters_to_extract"`
}

type ToolInfo struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Parameters         any    `json:"parameters"`
	NeedsKnowledgeBase bool   `json:"needs_knowledge_base"`
}
