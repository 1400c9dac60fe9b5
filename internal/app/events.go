package app

import (
	"context"

	"docqa/internal/model"
)

type EventPublisher interface {
	Publish(ctx context.Context, event model.IngestionEvent) error
}

type EventWriter interface {
	Create(ctx context.Context, event *model.IngestionEvent) error
}

// DirectEventPublisher writes events straight to the database when no
// broker is configured.
type DirectEventPublisher struct {
	repo EventWriter
}

func NewDirectEventPublisher(repo EventWriter) *DirectEventPublisher {
	return &DirectEventPublisher{repo: repo}
}

func (p *DirectEventPublisher) Publish(ctx context.Context, event model.IngestionEvent) error {
	return p.repo.Create(ctx, &event)
}
