package index

import (
	"context"
	"errors"
	"math"
	"sort"

	"docqa/internal/model"
)

var (
	ErrEmbeddingFailure = errors.New("embedding failure")
	ErrIndexUnavailable = errors.New("index unavailable")
)

// Store is a vector backend. Staged chunks stay invisible to Search
// until their document is committed.
type Store interface {
	Stage(ctx context.Context, chunks []model.Chunk) error
	Commit(ctx context.Context, documentID string) error
	Remove(ctx context.Context, documentID string) error
	Search(ctx context.Context, vector []float32, k int) ([]model.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	// Has reports whether documentID has committed chunks.
	Has(ctx context.Context, documentID string) (bool, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when the
// vectors differ in length or either has zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// rank orders candidates by descending score and keeps the first k.
// Candidates must arrive in insertion order so ties keep it.
func rank(candidates []model.ScoredChunk, k int) []model.ScoredChunk {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}
