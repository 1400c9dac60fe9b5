package model

// Chunk is one indexed segment of a document's extracted text.
type Chunk struct {
	DocumentID string `json:"document_id"`
	// Index numbers the document's chunks from 0 without gaps. Blank
	// segments are never indexed, so Index can trail the segment number.
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Offset     int       `json:"offset"`
	Overlap    int       `json:"overlap"`
	Page       int       `json:"page,omitempty"`
	Embedding  []float32 `json:"-"`
}

type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}
