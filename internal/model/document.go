package model

import "time"

type DocumentStatus string

const (
	DocumentReady  DocumentStatus = "ready"
	DocumentFailed DocumentStatus = "failed"
	DocumentEmpty  DocumentStatus = "empty"
)

// Document is written once per upload with its final status.
type Document struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	Filename       string         `gorm:"size:512;not null" json:"filename"`
	Format         string         `gorm:"size:16;not null;index" json:"format"`
	Status         DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	Error          string         `gorm:"type:text" json:"error,omitempty"`
	SizeBytes      int64          `json:"size_bytes"`
	ContentHash    string         `gorm:"size:64;index" json:"content_hash"`
	ChunkCount     int            `json:"chunk_count"`
	EmbeddingModel string         `gorm:"size:128" json:"embedding_model,omitempty"`
	StorageURI     string         `gorm:"size:1024" json:"storage_uri,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
