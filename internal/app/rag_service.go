package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/model"
	"docqa/internal/pkg/chunker"
	"docqa/internal/pkg/extract"
	"docqa/internal/platform/blob"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	ListReadyByHash(ctx context.Context, hash string) ([]model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
	MarkFailed(ctx context.Context, id, reason string) error
}

type EventRepository interface {
	ListByDocumentID(ctx context.Context, documentID string) ([]model.IngestionEvent, error)
}

// VectorIndex is the embedding index documents are published into.
type VectorIndex interface {
	Searcher
	Add(ctx context.Context, documentID string, chunks []model.Chunk) error
	Publish(ctx context.Context, documentID string) error
	Discard(ctx context.Context, documentID string) error
	Has(ctx context.Context, documentID string) (bool, error)
	Model() string
}

type IngestOptions struct {
	Concurrency  int
	MaxFileBytes int64
	MaxFiles     int
	BlobPrefix   string
}

// Dependencies wires RAGService. Blobs may be nil to skip keeping originals.
type Dependencies struct {
	Documents DocumentRepository
	Events    EventRepository
	Publisher EventPublisher
	Blobs     blob.Store
	Index     VectorIndex
	Chunker   *chunker.Chunker
	Retriever *Retriever
	Generator *AnswerGenerator
}

type RAGService struct {
	docs      DocumentRepository
	events    EventRepository
	publisher EventPublisher
	blobs     blob.Store
	index     VectorIndex
	chunker   *chunker.Chunker
	retriever *Retriever
	generator *AnswerGenerator
	opts      IngestOptions
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewRAGService(deps Dependencies, opts IngestOptions, logger *slog.Logger) *RAGService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 50 << 20
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 20
	}
	if opts.BlobPrefix == "" {
		opts.BlobPrefix = "documents"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Chunker == nil {
		deps.Chunker = chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	}
	return &RAGService{
		docs:      deps.Documents,
		events:    deps.Events,
		publisher: deps.Publisher,
		blobs:     deps.Blobs,
		index:     deps.Index,
		chunker:   deps.Chunker,
		retriever: deps.Retriever,
		generator: deps.Generator,
		opts:      opts,
		logger:    logger.With("component", "rag_service"),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// UploadFile is one file of an upload batch. Open is called at most once.
type UploadFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as an UploadFile.
func BytesFile(filename string, data []byte) UploadFile {
	return UploadFile{
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type IngestOutcome struct {
	Filename   string               `json:"filename"`
	DocumentID string               `json:"document_id"`
	Status     model.DocumentStatus `json:"status"`
	Error      string               `json:"error,omitempty"`
	ChunkCount int                  `json:"chunk_count"`
	Duplicate  bool                 `json:"duplicate"`
	StorageURI string               `json:"storage_uri,omitempty"`

	Err error `json:"-"`
}

// Ingest processes every file independently and concurrently. Outcomes
// follow input order; a failing file never affects the others.
func (s *RAGService) Ingest(ctx context.Context, files []UploadFile) ([]IngestOutcome, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidRequest)
	}
	if len(files) > s.opts.MaxFiles {
		return nil, fmt.Errorf("%w: %d files exceed the limit of %d", ErrInvalidRequest, len(files), s.opts.MaxFiles)
	}

	outcomes := make([]IngestOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range files {
		g.Go(func() error {
			outcomes[i] = s.ingestOne(gctx, files[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

type ingestJob struct {
	file    UploadFile
	doc     *model.Document
	started time.Time
}

func (s *RAGService) ingestOne(ctx context.Context, f UploadFile) IngestOutcome {
	job := &ingestJob{
		file:    f,
		started: s.now(),
		doc: &model.Document{
			ID:             s.newID(),
			Filename:       f.Filename,
			SizeBytes:      f.Size,
			EmbeddingModel: s.index.Model(),
		},
	}

	format, formatErr := extract.FormatFromFilename(f.Filename)
	job.doc.Format = string(format)

	if f.Size == 0 {
		return s.finish(ctx, job, model.DocumentEmpty, nil)
	}
	if f.Size > s.opts.MaxFileBytes {
		return s.finish(ctx, job, model.DocumentFailed,
			fmt.Errorf("%w: file is %d bytes, limit is %d", ErrInvalidRequest, f.Size, s.opts.MaxFileBytes))
	}
	if formatErr != nil {
		return s.finish(ctx, job, model.DocumentFailed, formatErr)
	}

	data, err := s.read(f)
	if err != nil {
		return s.finish(ctx, job, model.DocumentFailed, err)
	}
	job.doc.SizeBytes = int64(len(data))
	if len(data) == 0 {
		return s.finish(ctx, job, model.DocumentEmpty, nil)
	}

	sum := sha256.Sum256(data)
	job.doc.ContentHash = hex.EncodeToString(sum[:])

	existing, err := s.searchableCopy(ctx, job.doc.ContentHash)
	if err != nil {
		return s.finish(ctx, job, model.DocumentFailed, err)
	}
	if existing != nil {
		return s.duplicate(ctx, job, existing)
	}

	if s.blobs != nil {
		key := blob.ObjectKey(s.opts.BlobPrefix, job.doc.ID, f.Filename)
		uri, err := s.blobs.Put(ctx, key, bytes.NewReader(data), mimetype.Detect(data).String())
		if err != nil {
			return s.finish(ctx, job, model.DocumentFailed, fmt.Errorf("%w: %w", ErrStorageFailure, err))
		}
		job.doc.StorageURI = uri
	}

	res, err := extract.Extract(format, bytes.NewReader(data))
	if err != nil {
		return s.finish(ctx, job, model.DocumentFailed, err)
	}

	chunks := s.chunk(job.doc.ID, res)
	if len(chunks) == 0 {
		return s.finish(ctx, job, model.DocumentEmpty, nil)
	}

	if err := s.index.Add(ctx, job.doc.ID, chunks); err != nil {
		return s.finish(ctx, job, model.DocumentFailed, err)
	}
	job.doc.ChunkCount = len(chunks)
	return s.finish(ctx, job, model.DocumentReady, nil)
}

// searchableCopy returns a ready document with the given hash whose chunks
// are committed to the index. Ready rows whose chunks are gone, such as
// after a restart on the memory backend, do not count.
func (s *RAGService) searchableCopy(ctx context.Context, hash string) (*model.Document, error) {
	candidates, err := s.docs.ListReadyByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	for i := range candidates {
		ok, err := s.index.Has(ctx, candidates[i].ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *RAGService) read(f UploadFile) ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("%w: file %q has no content", ErrInvalidRequest, f.Filename)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %w", ErrInvalidRequest, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.opts.MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", ErrInvalidRequest, err)
	}
	if int64(len(data)) > s.opts.MaxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidRequest, s.opts.MaxFileBytes)
	}
	return data, nil
}

// chunk splits the extracted text and tags every chunk with its page.
// Whitespace-only segments carry nothing to embed and are skipped, and
// the kept chunks are renumbered so Index stays contiguous.
func (s *RAGService) chunk(documentID string, res *extract.Result) []model.Chunk {
	if strings.TrimSpace(res.Text) == "" {
		return nil
	}
	segments := s.chunker.Split(res.Text)
	chunks := make([]model.Chunk, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       seg.Text,
			Offset:     seg.Offset,
			Overlap:    seg.Overlap,
			Page:       res.PageAt(seg.Offset + seg.Overlap),
		})
	}
	return chunks
}

// finish persists the document row with its final status, publishes the
// staged chunks of a ready document and emits the ingestion event.
func (s *RAGService) finish(ctx context.Context, job *ingestJob, status model.DocumentStatus, cause error) IngestOutcome {
	doc := job.doc
	doc.Status = status
	if cause != nil {
		doc.Error = cause.Error()
		doc.ChunkCount = 0
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		if status == model.DocumentReady {
			s.discard(ctx, doc.ID)
		}
		cause = fmt.Errorf("%w: %w", ErrStorageFailure, err)
		doc.Status = model.DocumentFailed
		doc.Error = cause.Error()
		doc.ChunkCount = 0
		s.logger.Error("persist document failed", "document_id", doc.ID, "filename", doc.Filename, "error", err)
	} else if status == model.DocumentReady {
		if err := s.index.Publish(ctx, doc.ID); err != nil {
			s.discard(ctx, doc.ID)
			cause = err
			doc.Status = model.DocumentFailed
			doc.Error = err.Error()
			doc.ChunkCount = 0
			if markErr := s.docs.MarkFailed(ctx, doc.ID, doc.Error); markErr != nil {
				s.logger.Error("mark document failed failed", "document_id", doc.ID, "error", markErr)
			}
		}
	}

	outcome := IngestOutcome{
		Filename:   doc.Filename,
		DocumentID: doc.ID,
		Status:     doc.Status,
		Error:      doc.Error,
		ChunkCount: doc.ChunkCount,
		StorageURI: doc.StorageURI,
		Err:        cause,
	}
	s.logOutcome(job, outcome)
	s.emit(ctx, outcome)
	return outcome
}

func (s *RAGService) duplicate(ctx context.Context, job *ingestJob, existing *model.Document) IngestOutcome {
	outcome := IngestOutcome{
		Filename:   job.file.Filename,
		DocumentID: existing.ID,
		Status:     existing.Status,
		ChunkCount: existing.ChunkCount,
		Duplicate:  true,
		StorageURI: existing.StorageURI,
	}
	s.logOutcome(job, outcome)
	s.emit(ctx, outcome)
	return outcome
}

func (s *RAGService) discard(ctx context.Context, documentID string) {
	if err := s.index.Discard(ctx, documentID); err != nil {
		s.logger.Warn("discard chunks failed", "document_id", documentID, "error", err)
	}
}

func (s *RAGService) logOutcome(job *ingestJob, outcome IngestOutcome) {
	attrs := []any{
		"document_id", outcome.DocumentID,
		"filename", outcome.Filename,
		"status", outcome.Status,
		"chunks", outcome.ChunkCount,
		"duplicate", outcome.Duplicate,
		"elapsed", s.now().Sub(job.started),
	}
	if outcome.Status == model.DocumentFailed {
		s.logger.Warn("ingest file failed", append(attrs, "error", outcome.Error)...)
		return
	}
	s.logger.Info("ingest file done", attrs...)
}

func (s *RAGService) emit(ctx context.Context, outcome IngestOutcome) {
	if s.publisher == nil {
		return
	}
	event := model.IngestionEvent{
		DocumentID: outcome.DocumentID,
		Filename:   outcome.Filename,
		Status:     outcome.Status,
		Error:      outcome.Error,
		ChunkCount: outcome.ChunkCount,
		Duplicate:  outcome.Duplicate,
		OccurredAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ingestion event failed", "document_id", outcome.DocumentID, "error", err)
	}
}

type AskInput struct {
	Question string
	TopK     int
}

type AskResult struct {
	Question  string              `json:"question"`
	Answer    string              `json:"answer"`
	Sources   []string            `json:"sources"`
	NoContext bool                `json:"no_context"`
	Chunks    []model.ScoredChunk `json:"chunks"`
}

// Ask retrieves the passages closest to the question and has the model
// answer from them. With nothing indexed the result has NoContext set and
// no answer.
func (s *RAGService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidRequest)
	}

	hits, err := s.retriever.Retrieve(ctx, question, input.TopK)
	if err != nil {
		return nil, err
	}
	result := &AskResult{Question: question, Sources: []string{}, Chunks: hits}
	if len(hits) == 0 {
		result.NoContext = true
		return result, nil
	}

	filenames := make(map[string]string)
	for _, h := range hits {
		if _, seen := filenames[h.DocumentID]; seen {
			continue
		}
		result.Sources = append(result.Sources, h.DocumentID)
		filenames[h.DocumentID] = s.sourceFilename(ctx, h.DocumentID)
	}

	passages := make([]ContextChunk, len(hits))
	for i, h := range hits {
		passages[i] = ContextChunk{
			DocumentID: h.DocumentID,
			Filename:   filenames[h.DocumentID],
			Page:       h.Page,
			Text:       h.Text,
		}
	}

	answer, err := s.generator.Generate(ctx, question, passages)
	if err != nil {
		return nil, err
	}
	result.Answer = answer
	return result, nil
}

// sourceFilename looks up a cited document and warns when its vectors
// came from a different embedding model than the one answering queries.
func (s *RAGService) sourceFilename(ctx context.Context, documentID string) string {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		s.logger.Warn("load source document failed", "document_id", documentID, "error", err)
		return ""
	}
	if doc == nil {
		return ""
	}
	if doc.EmbeddingModel != "" && doc.EmbeddingModel != s.index.Model() {
		s.logger.Warn("embedding model mismatch",
			"document_id", doc.ID,
			"document_model", doc.EmbeddingModel,
			"query_model", s.index.Model(),
		)
	}
	return doc.Filename
}

func (s *RAGService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

func (s *RAGService) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: document id is empty", ErrInvalidRequest)
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *RAGService) ListEvents(ctx context.Context, documentID string) ([]model.IngestionEvent, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	events, err := s.events.ListByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if events == nil {
		events = []model.IngestionEvent{}
	}
	return events, nil
}
