package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// VectorChunk is the row of the pgvector backend.
type VectorChunk struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	DocumentID string          `gorm:"size:36;not null;index" json:"document_id"`
	Seq        int             `gorm:"not null" json:"seq"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Offset     int             `gorm:"column:char_offset" json:"offset"`
	Overlap    int             `json:"overlap"`
	Page       int             `json:"page"`
	Embedding  pgvector.Vector `gorm:"type:vector" json:"-"`
	Committed  bool            `gorm:"not null;default:false;index" json:"committed"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (c *VectorChunk) ToChunk() Chunk {
	return Chunk{
		DocumentID: c.DocumentID,
		Index:      c.Seq,
		Text:       c.Content,
		Offset:     c.Offset,
		Overlap:    c.Overlap,
		Page:       c.Page,
		Embedding:  c.Embedding.Slice(),
	}
}
