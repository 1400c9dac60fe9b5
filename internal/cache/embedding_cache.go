package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// EmbeddingCache memoizes vectors in Redis keyed by model and text hash.
// Redis failures degrade to calling the wrapped embedder.
type EmbeddingCache struct {
	next   Embedder
	client *redisv9.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewEmbeddingCache(next Embedder, client *redisv9.Client, ttl time.Duration, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *EmbeddingCache) Model() string { return c.next.Model() }

func (c *EmbeddingCache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	result := make([][]float32, len(texts))
	cached, err := c.lookup(ctx, keys)
	if err != nil {
		c.logger.Warn("embedding cache lookup failed", "error", err)
		cached = nil
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if cached != nil && cached[i] != nil {
			result[i] = cached[i]
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	if len(missTexts) == 0 {
		return result, nil
	}

	fresh, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(missTexts), len(fresh))
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		result[i] = fresh[j]
		missKeys[j] = keys[i]
	}
	if err := c.store(ctx, missKeys, fresh); err != nil {
		c.logger.Warn("embedding cache store failed", "error", err)
	}
	return result, nil
}

func (c *EmbeddingCache) lookup(ctx context.Context, keys []string) ([][]float32, error) {
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget embeddings failed: %w", err)
	}

	out := make([][]float32, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil || len(vec) == 0 {
			continue
		}
		out[i] = vec
	}
	return out, nil
}

func (c *EmbeddingCache) store(ctx context.Context, keys []string, vectors [][]float32) error {
	pipe := c.client.Pipeline()
	for i, key := range keys {
		payload, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("marshal embedding cache failed: %w", err)
		}
		pipe.Set(ctx, key, payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set embeddings failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", c.next.Model(), hex.EncodeToString(sum[:]))
}
