package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/model"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.IngestionEvent) error
}

// EventPersistWorker drains the ingestion event queue into the database.
type EventPersistWorker struct {
	conn      *amqp.Connection
	repo      EventRepository
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventPersistWorker(conn *amqp.Connection, repo EventRepository, queueName string, logger *slog.Logger) *EventPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With("component", "event_worker", "queue", queueName),
	}
}

func (w *EventPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		w.logger.Info("event worker started")
		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

// handle persists one delivery. Undecodable payloads are dropped; a
// failed insert is requeued once.
func (w *EventPersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	var event model.IngestionEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.logger.Error("decode event failed", "error", err)
		_ = d.Nack(false, false)
		return
	}

	event.ID = 0
	if err := w.repo.Create(ctx, &event); err != nil {
		w.logger.Error("persist event failed",
			"document_id", event.DocumentID,
			"redelivered", d.Redelivered,
			"error", err,
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	_ = d.Ack(false)
}

func (w *EventPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
