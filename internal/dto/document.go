package dto

import "rag-assistant/internal/models"

type DocumentResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Size       int    `json:"size"`
	IngestedAt string `json:"ingested_at"`
}

// IngestResponse is returned by knowledge base creation and document upload.
type IngestResponse struct {
	FailedFiles []string                 `json:"failed_files"`
	Documents   []DocumentResponse       `json:"documents"`
	Info        models.KnowledgeBaseInfo `json:"knowledge_base"`
}

type DeleteDocumentResponse struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

type BackupRequest struct {
	Name string `json:"name"`
}

type BackupResponse struct {
	Path string `json:"path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
