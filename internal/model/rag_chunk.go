package model

import (
	"encoding/json"
	"time"
)

// RAGChunk is the relational row of the SQL vector backend.
// Embedding is stored as JSON array of float32 for portability.
type RAGChunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:36;not null;index" json:"document_id"`
	Seq        int       `gorm:"not null" json:"seq"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Offset     int       `gorm:"column:char_offset" json:"offset"`
	Overlap    int       `json:"overlap"`
	Page       int       `json:"page"`
	Embedding  string    `gorm:"type:text" json:"-"` // JSON array of float32
	Committed  bool      `gorm:"not null;default:false;index" json:"committed"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *RAGChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *RAGChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

func (c *RAGChunk) ToChunk() Chunk {
	return Chunk{
		DocumentID: c.DocumentID,
		Index:      c.Seq,
		Text:       c.Content,
		Offset:     c.Offset,
		Overlap:    c.Overlap,
		Page:       c.Page,
		Embedding:  c.EmbeddingVector(),
	}
}
