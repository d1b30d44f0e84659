package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/postprocessors/chunker"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// ChunkSize and Overlap configure the chunker.
	ChunkSize int
	Overlap   int

	// Concurrency bounds IngestBatch. Values below 1 mean 1.
	Concurrency int

	// DeferFailed stores chunks whose embedding failed without a vector.
	DeferFailed bool
}

// IngestService runs documents through chunking, embedding and storage.
type IngestService struct {
	store       driven.ChunkStore
	embedder    driven.EmbeddingService
	registry    driven.NormaliserRegistry
	chunker     driven.Chunker
	concurrency int
	deferFailed bool
}

// NewIngestService creates the ingestion pipeline.
// An invalid chunk size / overlap pair is rejected here with a
// ChunkingConfigError, before any embedding call can happen.
// registry may be nil when only plain text is ingested.
func NewIngestService(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	registry driven.NormaliserRegistry,
	cfg IngestConfig,
) (*IngestService, error) {
	if err := domain.ValidateChunking(cfg.ChunkSize, cfg.Overlap); err != nil {
		return nil, err
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &IngestService{
		store:       store,
		embedder:    embedder,
		registry:    registry,
		chunker:     chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.Overlap)),
		concurrency: concurrency,
		deferFailed: cfg.DeferFailed,
	}, nil
}

// Ingest chunks, embeds and stores one document.
//
// Chunks are embedded one after another. A chunk whose embedding or write
// fails is logged and counted, and the rest of the document carries on.
// Cancellation is checked between chunks; whatever was stored stays.
//
// With Replace, the source's previous chunks are removed only after the
// new version has stored at least one chunk, so a provider outage never
// leaves the source empty.
//
//nolint:gocognit // Pipeline with per-chunk failure accounting
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	name := strings.TrimSpace(req.SourceName)
	if name == "" {
		return nil, fmt.Errorf("%w: source name is required", domain.ErrInvalidInput)
	}
	result := &domain.IngestResult{SourceName: name}

	// 1. SKIP OR REPLACE
	if req.SkipExisting {
		exists, err := s.store.ExistsForSource(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check existing: %w", err)
		}
		if exists {
			logger.Debug("ingest: %s already stored, skipping", name)
			result.Skipped = true
			return result, nil
		}
	}
	var previous []string
	if req.Replace {
		ids, err := s.store.ChunkIDsForSource(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("replace existing: %w", err)
		}
		previous = ids
	}

	// 2. CHUNK
	pieces := s.chunker.Chunk(req.Text)
	if len(pieces) == 0 {
		logger.Debug("ingest: %s has no text", name)
		return result, s.dropPrevious(ctx, result, previous, true)
	}
	logger.Debug("ingest: %s -> %d chunks", name, len(pieces))

	// 3. EMBED AND STORE, one chunk at a time
	var cancelErr error
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}

		chunk := domain.Chunk{
			ID:            uuid.New().String(),
			SourceName:    name,
			SequenceIndex: i,
			Text:          piece,
			Metadata:      s.chunkMetadata(req.Metadata, piece),
		}

		vec, err := embedText(ctx, s.embedder, piece)
		if err != nil {
			result.ChunksFailed++
			logger.Warn("ingest %s: chunk %d: %v", name, i, err)
			if s.deferFailed && s.storePending(ctx, &chunk) {
				result.ChunksDeferred++
			}
			continue
		}

		chunk.Embedding = vec
		chunk.Metadata[domain.MetaEmbeddingModel] = s.embedder.ModelName()
		chunk.Metadata[domain.MetaVectorDimensions] = len(vec)

		if _, err := s.store.Put(ctx, &chunk); err != nil {
			result.ChunksFailed++
			logger.Warn("ingest %s: store chunk %d: %v", name, i, err)
			continue
		}
		result.ChunksCreated++
	}

	// 4. RETIRE THE PREVIOUS VERSION
	stored := result.ChunksCreated+result.ChunksDeferred > 0
	if err := s.dropPrevious(context.WithoutCancel(ctx), result, previous, stored); err != nil {
		return result, err
	}
	if cancelErr != nil {
		return result, cancelErr
	}

	logger.Info("ingest: %s: %d chunks created, %d failed", name, result.ChunksCreated, result.ChunksFailed)
	return result, nil
}

// dropPrevious deletes the chunks a replace ingest superseded. When the new
// version stored nothing, the previous chunks are kept and left uncounted.
func (s *IngestService) dropPrevious(ctx context.Context, result *domain.IngestResult, previous []string, stored bool) error {
	if len(previous) == 0 {
		return nil
	}
	if !stored {
		logger.Warn("ingest %s: no new chunks stored; keeping %d existing chunks", result.SourceName, len(previous))
		return nil
	}
	n, err := s.store.DeleteChunks(ctx, previous)
	if err != nil {
		return fmt.Errorf("replace existing: %w", err)
	}
	result.ChunksReplaced = n
	return nil
}

// storePending writes chunk without an embedding for a later back-fill.
func (s *IngestService) storePending(ctx context.Context, chunk *domain.Chunk) bool {
	chunk.Metadata[domain.MetaEmbeddingPending] = true
	if _, err := s.store.Put(ctx, chunk); err != nil {
		logger.Warn("ingest %s: defer chunk %d: %v", chunk.SourceName, chunk.SequenceIndex, err)
		return false
	}
	return true
}

func (s *IngestService) chunkMetadata(base map[string]any, piece string) map[string]any {
	md := make(map[string]any, len(base)+4)
	for k, v := range base {
		md[k] = v
	}
	if _, ok := md[domain.MetaOrigin]; !ok {
		md[domain.MetaOrigin] = domain.OriginText
	}
	md[domain.MetaCharCount] = utf8.RuneCountInString(piece)
	return md
}

// IngestBatch ingests documents concurrently, at most Concurrency at a time.
// Each document's failure is recorded under its source name and never
// stops the others. Cancelling ctx stops documents that have not started.
func (s *IngestService) IngestBatch(ctx context.Context, reqs []domain.IngestRequest) (*domain.BatchResult, error) {
	logger.Section("Batch Ingestion")

	results := make([]*domain.IngestResult, len(reqs))
	var (
		mu   sync.Mutex
		errs = make(map[string]string)
	)
	recordErr := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[name] = err.Error()
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i := range reqs {
		req := reqs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				recordErr(req.SourceName, err)
				return nil
			}
			res, err := s.Ingest(ctx, req)
			if err != nil {
				logger.Warn("ingest %s: %v", req.SourceName, err)
				recordErr(req.SourceName, err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	batch := &domain.BatchResult{Results: make([]domain.IngestResult, 0, len(reqs))}
	for _, r := range results {
		if r != nil {
			batch.Results = append(batch.Results, *r)
		}
	}
	if len(errs) > 0 {
		batch.Errors = errs
	}

	logger.Info("batch: %d documents, %d chunks created, %d failed, %d document errors",
		len(reqs), batch.ChunksCreated(), batch.ChunksFailed(), len(errs))
	return batch, ctx.Err()
}

// IngestDocument extracts text from raw and ingests it.
func (s *IngestService) IngestDocument(
	ctx context.Context,
	raw *domain.RawDocument,
	req domain.IngestRequest,
) (*domain.IngestResult, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrUnsupportedFormat)
	}

	extracted, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}

	if req.SourceName == "" {
		req.SourceName = raw.Name
	}
	req.Text = extracted.Text

	md := make(map[string]any, len(raw.Metadata)+len(req.Metadata)+4)
	for k, v := range raw.Metadata {
		md[k] = v
	}
	for k, v := range req.Metadata {
		md[k] = v
	}
	if _, ok := md[domain.MetaOrigin]; !ok {
		md[domain.MetaOrigin] = domain.OriginFile
	}
	if raw.MIMEType != "" {
		md[domain.MetaMIMEType] = raw.MIMEType
	}
	if raw.URI != "" {
		md[domain.MetaURI] = raw.URI
	}
	if extracted.Title != "" {
		md[domain.MetaTitle] = extracted.Title
	}
	req.Metadata = md

	return s.Ingest(ctx, req)
}

// DeleteSource removes every chunk of a source.
func (s *IngestService) DeleteSource(ctx context.Context, sourceName string) (int, error) {
	if strings.TrimSpace(sourceName) == "" {
		return 0, fmt.Errorf("%w: source name is required", domain.ErrInvalidInput)
	}
	n, err := s.store.DeleteBySource(ctx, sourceName)
	if err != nil {
		return n, fmt.Errorf("delete source %s: %w", sourceName, err)
	}
	logger.Info("deleted %d chunks for %s", n, sourceName)
	return n, nil
}
