package models

// KnowledgeBaseInfo describes the persisted knowledge base.
type KnowledgeBaseInfo struct {
	Initialized              bool     `json:"initialized"`
	CurrentFileCount         int      `json:"current_file_count"`
	FileNames                []string `json:"file_names"`
	VectorStoreDocumentCount int      `json:"vector_store_document_count"`
	RawTextSize              int      `json:"raw_text_size"`
	StorageSize              int64    `json:"storage_size"`
	StorageSizeHuman         string   `json:"storage_size_human"`
}
