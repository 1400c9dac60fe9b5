package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"docqa/internal/ai"
	"docqa/internal/index"
	"docqa/internal/model"
	"docqa/internal/pkg/chunker"
)

type memoryDocs struct {
	mu      sync.Mutex
	docs    map[string]model.Document
	order   []string
	failed  map[string]string
	failAll error
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: make(map[string]model.Document), failed: make(map[string]string)}
}

func (r *memoryDocs) Create(_ context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	r.docs[doc.ID] = *doc
	r.order = append(r.order, doc.ID)
	return nil
}

func (r *memoryDocs) GetByID(_ context.Context, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (r *memoryDocs) ListReadyByHash(_ context.Context, hash string) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Document
	for i := len(r.order) - 1; i >= 0; i-- {
		doc := r.docs[r.order[i]]
		if doc.ContentHash == hash && doc.Status == model.DocumentReady {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *memoryDocs) List(_ context.Context) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.docs[r.order[i]])
	}
	return out, nil
}

func (r *memoryDocs) MarkFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.docs[id]
	doc.Status = model.DocumentFailed
	doc.Error = reason
	doc.ChunkCount = 0
	r.docs[id] = doc
	r.failed[id] = reason
	return nil
}

func (r *memoryDocs) byFilename(name string) (model.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Filename == name {
			return doc, true
		}
	}
	return model.Document{}, false
}

type memoryEvents struct {
	mu     sync.Mutex
	events []model.IngestionEvent
}

func (r *memoryEvents) Create(_ context.Context, event *model.IngestionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryEvents) ListByDocumentID(_ context.Context, documentID string) ([]model.IngestionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.IngestionEvent
	for _, e := range r.events {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// vocabEmbedder gives every distinct lowercased word its own dimension,
// so similarity is plain word overlap with no hash collisions.
type vocabEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
	err   error
}

const vocabDims = 512

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: make(map[string]int)}
}

func (e *vocabEmbedder) Model() string { return "vocab-test" }

func (e *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, vocabDims)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,;:?!\"'")
			if word == "" {
				continue
			}
			dim, ok := e.vocab[word]
			if !ok {
				dim = len(e.vocab) % vocabDims
				e.vocab[word] = dim
			}
			vec[dim]++
		}
		out[i] = vec
	}
	return out, nil
}

// commitFailStore refuses to publish.
type commitFailStore struct {
	*index.MemoryStore
}

func (s commitFailStore) Commit(context.Context, string) error {
	return errors.New("commit refused")
}

type scriptedCompleter struct {
	mu      sync.Mutex
	prompts []string
	systems []string
	answer  func(prompt string) (string, error)
}

func (c *scriptedCompleter) Name() string { return "scripted" }

func (c *scriptedCompleter) Generate(_ context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.systems = append(c.systems, system)
	c.mu.Unlock()
	return c.answer(prompt)
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type recordingBlobs struct {
	mu   sync.Mutex
	keys []string
	data map[string]string
	err  error
}

func (b *recordingBlobs) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		b.data = make(map[string]string)
	}
	b.keys = append(b.keys, key)
	b.data[key] = string(raw)
	return "mem://" + key, nil
}

type harness struct {
	svc       *RAGService
	docs      *memoryDocs
	events    *memoryEvents
	embedder  *vocabEmbedder
	store     index.Store
	index     *index.Index
	completer *scriptedCompleter
	blobs     *recordingBlobs
}

type harnessOption func(*harness, *Dependencies, *IngestOptions)

func withStore(store index.Store) harnessOption {
	return func(h *harness, _ *Dependencies, _ *IngestOptions) { h.store = store }
}

func withDocs(docs *memoryDocs) harnessOption {
	return func(h *harness, _ *Dependencies, _ *IngestOptions) { h.docs = docs }
}

func withBlobs() harnessOption {
	return func(h *harness, _ *Dependencies, _ *IngestOptions) { h.blobs = &recordingBlobs{} }
}

func withMaxFileBytes(n int64) harnessOption {
	return func(_ *harness, _ *Dependencies, o *IngestOptions) { o.MaxFileBytes = n }
}

func newHarness(opts ...harnessOption) *harness {
	h := &harness{
		docs:     newMemoryDocs(),
		events:   &memoryEvents{},
		embedder: newVocabEmbedder(),
		store:    index.NewMemoryStore(),
		completer: &scriptedCompleter{answer: func(string) (string, error) {
			return "stub answer", nil
		}},
	}
	deps := Dependencies{}
	ingestOpts := IngestOptions{Concurrency: 3, MaxFiles: 10}
	for _, opt := range opts {
		opt(h, &deps, &ingestOpts)
	}

	h.index = index.New(h.embedder, h.store, nil)
	policy := ai.RetryPolicy{MaxAttempts: 2, InitialBackoff: 0, Multiplier: 1}

	deps.Documents = h.docs
	deps.Events = h.events
	deps.Publisher = NewDirectEventPublisher(h.events)
	deps.Index = h.index
	deps.Chunker = chunker.New(200, 40)
	deps.Retriever = NewRetriever(h.index, 6, 50)
	deps.Generator = NewAnswerGenerator(h.completer, policy, nil)
	if h.blobs != nil {
		deps.Blobs = h.blobs
	}
	h.svc = NewRAGService(deps, ingestOpts, nil)
	return h
}

func (h *harness) eventsFor(documentID string) []model.IngestionEvent {
	events, _ := h.events.ListByDocumentID(context.Background(), documentID)
	sort.SliceStable(events, func(i, j int) bool { return events[i].OccurredAt.Before(events[j].OccurredAt) })
	return events
}
