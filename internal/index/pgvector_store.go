package index

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"docqa/internal/model"
)

// PGVectorStore delegates similarity search to Postgres with the
// vector extension, ordering by cosine distance.
type PGVectorStore struct {
	db        *gorm.DB
	batchSize int
}

// NewPGVectorStore enables the extension and migrates the chunk table.
// With dimensions > 0 the column is pinned to that size and an HNSW
// index is built on it.
func NewPGVectorStore(ctx context.Context, db *gorm.DB, dimensions int) (*PGVectorStore, error) {
	tx := db.WithContext(ctx)
	if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable vector extension failed: %w", err)
	}
	if err := tx.AutoMigrate(&model.VectorChunk{}); err != nil {
		return nil, fmt.Errorf("migrate vector chunks failed: %w", err)
	}
	if dimensions > 0 {
		alter := fmt.Sprintf("ALTER TABLE vector_chunks ALTER COLUMN embedding TYPE vector(%d)", dimensions)
		if err := tx.Exec(alter).Error; err != nil {
			return nil, fmt.Errorf("pin vector dimensions failed: %w", err)
		}
		if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_vector_chunks_embedding ON vector_chunks USING hnsw (embedding vector_cosine_ops)").Error; err != nil {
			return nil, fmt.Errorf("create hnsw index failed: %w", err)
		}
	}
	return &PGVectorStore{db: db, batchSize: 100}, nil
}

func (s *PGVectorStore) Stage(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]model.VectorChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = model.VectorChunk{
			DocumentID: c.DocumentID,
			Seq:        c.Index,
			Content:    c.Text,
			Offset:     c.Offset,
			Overlap:    c.Overlap,
			Page:       c.Page,
			Embedding:  pgvector.NewVector(c.Embedding),
		}
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, s.batchSize).Error; err != nil {
		return fmt.Errorf("create vector chunks batch failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Commit(ctx context.Context, documentID string) error {
	err := s.db.WithContext(ctx).Model(&model.VectorChunk{}).
		Where("document_id = ? AND committed = ?", documentID, false).
		Update("committed", true).Error
	if err != nil {
		return fmt.Errorf("commit vector chunks failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Remove(ctx context.Context, documentID string) error {
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.VectorChunk{}).Error; err != nil {
		return fmt.Errorf("delete vector chunks by document failed: %w", err)
	}
	return nil
}

type scoredVectorRow struct {
	model.VectorChunk
	Score float32
}

func (s *PGVectorStore) Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	query := pgvector.NewVector(vector)
	var rows []scoredVectorRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT id, document_id, seq, content, char_offset, overlap, page, embedding, committed, created_at,
			1 - (embedding <=> ?) AS score
		FROM vector_chunks
		WHERE committed = TRUE
		ORDER BY embedding <=> ? ASC, id ASC
		LIMIT ?`, query, query, k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search vector chunks failed: %w", err)
	}

	result := make([]model.ScoredChunk, len(rows))
	for i := range rows {
		result[i] = model.ScoredChunk{Chunk: rows[i].ToChunk(), Score: rows[i].Score}
	}
	return result, nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.VectorChunk{}).Where("committed = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count vector chunks failed: %w", err)
	}
	return int(n), nil
}

func (s *PGVectorStore) Has(ctx context.Context, documentID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.VectorChunk{}).
		Where("document_id = ? AND committed = ?", documentID, true).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check vector chunks failed: %w", err)
	}
	return n > 0, nil
}
