package models

import "time"

type DocumentStatus string

const (
	DocumentStatusIngested DocumentStatus = "ingested"
	DocumentStatusFailed   DocumentStatus = "failed"
	DocumentStatusDeleted  DocumentStatus = "deleted"
)

// Document is a user-supplied file. Name is unique within a knowledge base.
type Document struct {
	Name       string         `json:"name"`
	RawText    string         `json:"-"`
	Status     DocumentStatus `json:"status"`
	Size       int            `json:"size"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// File is an uploaded file before extraction.
type File struct {
	Name string
	Data []byte
}
