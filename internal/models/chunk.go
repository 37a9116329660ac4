package models

// Chunk is a bounded slice of a document's raw text, the unit of retrieval.
type Chunk struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Sequence int    `json:"sequence"`
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}
