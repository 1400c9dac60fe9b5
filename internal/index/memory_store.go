package index

import (
	"context"
	"sort"
	"sync"

	"docqa/internal/model"
)

type memoryEntry struct {
	seq   uint64
	chunk model.Chunk
}

// MemoryStore keeps vectors in process and scores them by brute force.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       uint64
	committed []memoryEntry
	staged    map[string][]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{staged: make(map[string][]memoryEntry)}
}

func (s *MemoryStore) Stage(_ context.Context, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.seq++
		s.staged[c.DocumentID] = append(s.staged[c.DocumentID], memoryEntry{seq: s.seq, chunk: c})
	}
	return nil
}

func (s *MemoryStore) Commit(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.staged[documentID]
	if !ok {
		return nil
	}
	delete(s.staged, documentID)
	s.committed = append(s.committed, entries...)
	sort.SliceStable(s.committed, func(i, j int) bool {
		return s.committed[i].seq < s.committed[j].seq
	})
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, documentID)
	kept := s.committed[:0]
	for _, e := range s.committed {
		if e.chunk.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	s.committed = kept
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	candidates := make([]model.ScoredChunk, len(s.committed))
	for i, e := range s.committed {
		candidates[i] = model.ScoredChunk{Chunk: e.chunk, Score: Cosine(vector, e.chunk.Embedding)}
	}
	s.mu.RUnlock()
	return rank(candidates, k), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.committed), nil
}

func (s *MemoryStore) Has(_ context.Context, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.committed {
		if e.chunk.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}
