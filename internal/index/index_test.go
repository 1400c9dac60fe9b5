package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/model"
)

// keywordEmbedder maps text onto a fixed vocabulary by word counts.
type keywordEmbedder struct {
	vocab []string
	calls int
	err   error
}

func (e *keywordEmbedder) Model() string { return "keyword" }

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.vocab))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,?!")
			for j, v := range e.vocab {
				if v == word {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

type failingStore struct {
	*MemoryStore
	stageErr  error
	searchErr error
	removed   []string
}

func (s *failingStore) Stage(ctx context.Context, chunks []model.Chunk) error {
	if s.stageErr != nil {
		return s.stageErr
	}
	return s.MemoryStore.Stage(ctx, chunks)
}

func (s *failingStore) Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.MemoryStore.Search(ctx, vector, k)
}

func (s *failingStore) Remove(ctx context.Context, documentID string) error {
	s.removed = append(s.removed, documentID)
	return s.MemoryStore.Remove(ctx, documentID)
}

func TestIndex_AddPublishQuery(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{vocab: []string{"paris", "france", "berlin", "germany"}}
	idx := New(emb, NewMemoryStore(), nil)

	require.NoError(t, idx.Add(ctx, "doc-fr", []model.Chunk{{Index: 0, Text: "Paris is the capital of France."}}))
	require.NoError(t, idx.Add(ctx, "doc-de", []model.Chunk{{Index: 0, Text: "Berlin is the capital of Germany."}}))

	hits, err := idx.Query(ctx, "What is the capital of France?", 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "unpublished chunks must not be searchable")

	require.NoError(t, idx.Publish(ctx, "doc-fr"))
	require.NoError(t, idx.Publish(ctx, "doc-de"))

	hits, err = idx.Query(ctx, "What is the capital of France?", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-fr", hits[0].DocumentID)
	assert.Equal(t, "Paris is the capital of France.", hits[0].Text)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	hits, err = idx.Query(ctx, "France", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "keyword", idx.Model())
}

func TestIndex_EmptyIndexSkipsEmbedding(t *testing.T) {
	emb := &keywordEmbedder{vocab: []string{"x"}}
	idx := New(emb, NewMemoryStore(), nil)

	hits, err := idx.Query(context.Background(), "anything", 6)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, emb.calls)
}

func TestIndex_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{vocab: []string{"x"}, err: errors.New("quota exceeded")}
	idx := New(emb, NewMemoryStore(), nil)

	err := idx.Add(ctx, "d", []model.Chunk{{Text: "x"}})
	require.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestIndex_StageFailureCleansUp(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore(), stageErr: errors.New("db down")}
	idx := New(&keywordEmbedder{vocab: []string{"x"}}, store, nil)

	err := idx.Add(ctx, "d", []model.Chunk{{Text: "x"}})
	require.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Equal(t, []string{"d"}, store.removed)
}

func TestIndex_SearchFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore()}
	idx := New(&keywordEmbedder{vocab: []string{"x"}}, store, nil)
	require.NoError(t, idx.Add(ctx, "d", []model.Chunk{{Text: "x"}}))
	require.NoError(t, idx.Publish(ctx, "d"))

	store.searchErr = errors.New("connection reset")
	_, err := idx.Query(ctx, "x", 3)
	require.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestIndex_Discard(t *testing.T) {
	ctx := context.Background()
	idx := New(&keywordEmbedder{vocab: []string{"x"}}, NewMemoryStore(), nil)
	require.NoError(t, idx.Add(ctx, "d", []model.Chunk{{Text: "x"}, {Index: 1, Text: "x x"}}))
	require.NoError(t, idx.Publish(ctx, "d"))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, idx.Discard(ctx, "d"))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndex_HasWrapsStoreErrors(t *testing.T) {
	ctx := context.Background()
	idx := New(&keywordEmbedder{vocab: []string{"x"}}, hasFailStore{NewMemoryStore()}, nil)

	_, err := idx.Has(ctx, "d")
	require.ErrorIs(t, err, ErrIndexUnavailable)
}

type hasFailStore struct {
	*MemoryStore
}

func (hasFailStore) Has(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}
