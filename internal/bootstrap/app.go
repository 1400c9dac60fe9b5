package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docqa/internal/ai"
	appsvc "docqa/internal/app"
	"docqa/internal/cache"
	"docqa/internal/config"
	"docqa/internal/index"
	"docqa/internal/model"
	"docqa/internal/pkg/chunker"
	"docqa/internal/platform/blob"
	"docqa/internal/platform/database"
	rabbitmqClient "docqa/internal/platform/rabbitmq"
	redisClient "docqa/internal/platform/redis"
	"docqa/internal/repository"
	"docqa/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.EventPersistWorker
	RAG         *appsvc.RAGService

	StartedAt time.Time
}

type Options struct {
	// StartWorkers runs the event persistence worker; only the server does.
	StartWorkers bool
}

// Probe checks one enabled dependency for /healthz.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (app *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app = &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	app.DB, err = database.New(ctx, database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.DatabaseDSN(),
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := app.DB.WithContext(ctx).AutoMigrate(&model.Document{}, &model.IngestionEvent{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	store, err := newVectorStore(ctx, cfg, app.DB, logger)
	if err != nil {
		return nil, err
	}

	llmClient := ai.NewOpenAICompatibleClient(cfg.LLMTimeout())
	var embedder index.Embedder = ai.NewEmbedder(llmClient, ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	}, cfg.Embedding.BatchSize)

	if cfg.Redis.Enabled {
		app.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(cfg.Embedding.CacheTTLSeconds) * time.Second
		embedder = cache.NewEmbeddingCache(embedder, app.Redis, ttl, logger)
	}

	completer, err := newCompleter(cfg, llmClient)
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	eventRepo := repository.NewIngestionEventRepository(app.DB)
	var publisher appsvc.EventPublisher = appsvc.NewDirectEventPublisher(eventRepo)
	if cfg.RabbitMQ.Enabled {
		app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventQueue)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmqClient.NewEventPublisher(app.MQConn, cfg.RabbitMQ.EventQueue)

		if opts.StartWorkers {
			app.EventWorker = worker.NewEventPersistWorker(app.MQConn, eventRepo, cfg.RabbitMQ.EventQueue, logger)
			if err := app.EventWorker.Start(ctx); err != nil {
				return nil, fmt.Errorf("start event worker failed: %w", err)
			}
		}
	}

	idx := index.New(embedder, store, logger)
	policy := ai.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
		Multiplier:     cfg.Retry.Multiplier,
	}

	app.RAG = appsvc.NewRAGService(appsvc.Dependencies{
		Documents: repository.NewDocumentRepository(app.DB),
		Events:    eventRepo,
		Publisher: publisher,
		Blobs:     blobs,
		Index:     idx,
		Chunker:   chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap),
		Retriever: appsvc.NewRetriever(idx, cfg.Vector.DefaultTopK, cfg.Vector.MaxTopK),
		Generator: appsvc.NewAnswerGenerator(completer, policy, logger),
	}, appsvc.IngestOptions{
		Concurrency:  cfg.Ingest.Concurrency,
		MaxFileBytes: cfg.Ingest.MaxFileBytes,
		MaxFiles:     cfg.Ingest.MaxFiles,
		BlobPrefix:   cfg.Storage.Prefix,
	}, logger)

	logger.Info("application ready",
		"database", cfg.Database.Driver,
		"vector_backend", cfg.Vector.Backend,
		"llm_provider", cfg.LLM.Provider,
		"embedding_model", cfg.Embedding.Model,
		"storage", cfg.Storage.Backend,
		"redis", cfg.Redis.Enabled,
		"rabbitmq", cfg.RabbitMQ.Enabled,
	)
	return app, nil
}

func newVectorStore(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *slog.Logger) (index.Store, error) {
	switch cfg.Vector.Backend {
	case "memory":
		logger.Warn("memory vector backend keeps chunks only for the life of the process")
		return index.NewMemoryStore(), nil
	case "sql":
		if err := db.WithContext(ctx).AutoMigrate(&model.RAGChunk{}); err != nil {
			return nil, fmt.Errorf("auto migrate rag chunks failed: %w", err)
		}
		return index.NewSQLStore(db), nil
	case "pgvector":
		return index.NewPGVectorStore(ctx, db, cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func newCompleter(cfg *config.Config, client *ai.OpenAICompatibleClient) (appsvc.Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return ai.NewOpenAIChatModel(client, ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}), nil
	case "gemini":
		if cfg.LLM.GeminiAPIKey == "" {
			return nil, errors.New("llm.gemini_api_key is required for the gemini provider")
		}
		return ai.NewGeminiClient(ai.GeminiConfig{
			BaseURL:     cfg.LLM.GeminiBaseURL,
			APIKey:      cfg.LLM.GeminiAPIKey,
			Model:       cfg.LLM.GeminiModel,
			Temperature: cfg.LLM.Temperature,
		}, cfg.LLMTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// newBlobStore returns nil when originals are not kept.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return blob.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
	case "local":
		return blob.NewLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, nil
	}
}

// Probes lists health checks for the enabled dependencies.
func (a *App) Probes() []Probe {
	var probes []Probe
	if a.DB != nil {
		probes = append(probes, Probe{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if a.Redis != nil {
		probes = append(probes, Probe{Name: "redis", Check: func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	if a.MQConn != nil {
		probes = append(probes, Probe{Name: "rabbitmq", Check: func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}
	return probes
}

func (a *App) Close() error {
	var errs []error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
