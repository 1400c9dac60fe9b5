package model

import "time"

type IngestionEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	DocumentID string         `gorm:"size:36;not null;index" json:"document_id"`
	Filename   string         `gorm:"size:512;not null" json:"filename"`
	Status     DocumentStatus `gorm:"size:16;not null" json:"status"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	ChunkCount int            `json:"chunk_count"`
	Duplicate  bool           `json:"duplicate"`
	OccurredAt time.Time      `gorm:"index" json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
