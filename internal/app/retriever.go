package app

import (
	"context"

	"docqa/internal/model"
)

type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]model.ScoredChunk, error)
}

// Retriever resolves the requested depth and queries the index.
type Retriever struct {
	index    Searcher
	defaultK int
	maxK     int
}

func NewRetriever(index Searcher, defaultK, maxK int) *Retriever {
	if defaultK <= 0 {
		defaultK = 6
	}
	if maxK < defaultK {
		maxK = defaultK
	}
	return &Retriever{index: index, defaultK: defaultK, maxK: maxK}
}

// TopK maps a requested k onto the configured range.
func (r *Retriever) TopK(k int) int {
	if k <= 0 {
		return r.defaultK
	}
	if k > r.maxK {
		return r.maxK
	}
	return k
}

func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]model.ScoredChunk, error) {
	hits, err := r.index.Query(ctx, question, r.TopK(k))
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []model.ScoredChunk{}
	}
	return hits, nil
}
