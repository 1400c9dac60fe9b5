package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

type IngestionEventRepository struct {
	db *gorm.DB
}

func NewIngestionEventRepository(db *gorm.DB) *IngestionEventRepository {
	return &IngestionEventRepository{db: db}
}

func (r *IngestionEventRepository) Create(ctx context.Context, event *model.IngestionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create ingestion event failed: %w", err)
	}
	return nil
}

func (r *IngestionEventRepository) ListByDocumentID(ctx context.Context, documentID string) ([]model.IngestionEvent, error) {
	var list []model.IngestionEvent
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("occurred_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list ingestion events failed: %w", err)
	}
	return list, nil
}
