package index

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/model"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Index pairs an embedder with a vector store.
type Index struct {
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

func New(embedder Embedder, store Store, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{embedder: embedder, store: store, logger: logger}
}

// Model names the embedding model vectors are produced with.
func (x *Index) Model() string { return x.embedder.Model() }

// Add embeds the chunks and stages them under documentID.
// Nothing becomes searchable until Publish.
func (x *Index) Add(ctx context.Context, documentID string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingFailure, len(vectors), len(chunks))
	}

	staged := make([]model.Chunk, len(chunks))
	for i := range chunks {
		staged[i] = chunks[i]
		staged[i].DocumentID = documentID
		staged[i].Embedding = vectors[i]
	}
	if err := x.store.Stage(ctx, staged); err != nil {
		if rmErr := x.store.Remove(ctx, documentID); rmErr != nil {
			x.logger.Warn("cleanup of partially staged chunks failed", "document_id", documentID, "error", rmErr)
		}
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return nil
}

// Publish makes the staged chunks of documentID searchable.
func (x *Index) Publish(ctx context.Context, documentID string) error {
	if err := x.store.Commit(ctx, documentID); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return nil
}

// Discard drops every chunk of documentID, staged or published.
func (x *Index) Discard(ctx context.Context, documentID string) error {
	if err := x.store.Remove(ctx, documentID); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return nil
}

// Query returns at most k chunks by descending cosine similarity to text.
// Equal scores keep insertion order. An empty index yields no chunks
// without calling the embedder.
func (x *Index) Query(ctx context.Context, text string, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	n, err := x.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	if n == 0 {
		return nil, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for the query", ErrEmbeddingFailure, len(vectors))
	}

	hits, err := x.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return hits, nil
}

// Has reports whether documentID is searchable.
func (x *Index) Has(ctx context.Context, documentID string) (bool, error) {
	ok, err := x.store.Has(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return ok, nil
}

// Count reports the number of searchable chunks.
func (x *Index) Count(ctx context.Context) (int, error) {
	n, err := x.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return n, nil
}
