package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embed returns the embedding vector for the given text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	resp, err := c.api(cfg.BaseURL, cfg.APIKey).CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: text,
		Model: openai.EmbeddingModel(cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", asStatusError(err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return resp.Data[0].Embedding, nil
}

// EmbedBatch returns one embedding per input text, in input order.
// Blank texts are rejected rather than dropped so results stay aligned.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	resp, err := c.api(cfg.BaseURL, cfg.APIKey).CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding batch request failed: %w", asStatusError(err))
	}
	data := resp.Data
	if len(data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(data))
	}
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	result := make([][]float32, len(data))
	for i := range data {
		if len(data[i].Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for input %d", i)
		}
		result[i] = data[i].Embedding
	}
	return result, nil
}

// Embedder batches texts against the embeddings endpoint.
// DashScope and similar APIs often limit batch size.
type Embedder struct {
	client    *OpenAICompatibleClient
	cfg       EmbeddingConfig
	batchSize int
}

func NewEmbedder(client *OpenAICompatibleClient, cfg EmbeddingConfig, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Embedder{client: client, cfg: cfg, batchSize: batchSize}
}

func (e *Embedder) Model() string { return e.cfg.Model }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 1 {
		vec, err := e.client.Embed(ctx, e.cfg, texts[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{vec}, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batched, err := e.client.EmbedBatch(ctx, e.cfg, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batched...)
	}
	return embeddings, nil
}
