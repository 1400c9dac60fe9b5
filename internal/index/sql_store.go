package index

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

// SQLStore keeps chunks in a plain relational table with JSON embeddings
// and scores them in process. It runs on any gorm dialect.
type SQLStore struct {
	db        *gorm.DB
	batchSize int
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, batchSize: 100}
}

func (s *SQLStore) Stage(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]model.RAGChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = model.RAGChunk{
			DocumentID: c.DocumentID,
			Seq:        c.Index,
			Content:    c.Text,
			Offset:     c.Offset,
			Overlap:    c.Overlap,
			Page:       c.Page,
		}
		rows[i].SetEmbedding(c.Embedding)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, s.batchSize).Error; err != nil {
		return fmt.Errorf("create rag chunks batch failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Commit(ctx context.Context, documentID string) error {
	err := s.db.WithContext(ctx).Model(&model.RAGChunk{}).
		Where("document_id = ? AND committed = ?", documentID, false).
		Update("committed", true).Error
	if err != nil {
		return fmt.Errorf("commit rag chunks failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, documentID string) error {
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.RAGChunk{}).Error; err != nil {
		return fmt.Errorf("delete rag chunks by document failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	var rows []model.RAGChunk
	if err := s.db.WithContext(ctx).Where("committed = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rag chunks failed: %w", err)
	}
	candidates := make([]model.ScoredChunk, len(rows))
	for i := range rows {
		chunk := rows[i].ToChunk()
		candidates[i] = model.ScoredChunk{Chunk: chunk, Score: Cosine(vector, chunk.Embedding)}
	}
	return rank(candidates, k), nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.RAGChunk{}).Where("committed = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count rag chunks failed: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) Has(ctx context.Context, documentID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RAGChunk{}).
		Where("document_id = ? AND committed = ?", documentID, true).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check rag chunks failed: %w", err)
	}
	return n > 0, nil
}
