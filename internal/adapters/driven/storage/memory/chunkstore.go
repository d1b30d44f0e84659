package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
//
// The chunk slice is copy-on-write: Put appends, while DeleteBySource and
// SetEmbedding install a new slice. A scan reads the slice it started with
// and holds no lock while calling back, so callbacks may use the store.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	closed bool
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

// Put stores a copy of chunk.
func (s *ChunkStore) Put(_ context.Context, chunk *domain.Chunk) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", domain.NewStorageError("put", errStoreClosed)
	}

	c := *chunk
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Embedding = slices.Clone(c.Embedding)
	c.Metadata = cloneMetadata(c.Metadata)

	s.chunks = append(s.chunks, c)
	return c.ID, nil
}

// ExistsForSource reports whether any chunk carries sourceName.
func (s *ChunkStore) ExistsForSource(_ context.Context, sourceName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.chunks {
		if s.chunks[i].SourceName == sourceName {
			return true, nil
		}
	}
	return false, nil
}

// ScanWithEmbeddings calls fn for each chunk with an embedding, in insertion order.
func (s *ChunkStore) ScanWithEmbeddings(ctx context.Context, fn func(domain.Chunk) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return domain.NewStorageError("scan", errStoreClosed)
	}
	snapshot := s.chunks
	s.mu.RUnlock()

	for i := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !snapshot[i].HasEmbedding() {
			continue
		}
		if err := fn(snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBySource removes every chunk with sourceName.
func (s *ChunkStore) DeleteBySource(_ context.Context, sourceName string) (int, error) {
	return s.deleteWhere(func(c *domain.Chunk) bool { return c.SourceName == sourceName }), nil
}

// DeleteChunks removes the chunks with the given IDs.
func (s *ChunkStore) DeleteChunks(_ context.Context, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return s.deleteWhere(func(c *domain.Chunk) bool {
		_, ok := drop[c.ID]
		return ok
	}), nil
}

func (s *ChunkStore) deleteWhere(match func(*domain.Chunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Chunk, 0, len(s.chunks))
	for i := range s.chunks {
		if !match(&s.chunks[i]) {
			kept = append(kept, s.chunks[i])
		}
	}

	deleted := len(s.chunks) - len(kept)
	if deleted > 0 {
		s.chunks = kept
	}
	return deleted
}

// ChunkIDsForSource returns the IDs of every chunk with sourceName, in
// insertion order.
func (s *ChunkStore) ChunkIDsForSource(_ context.Context, sourceName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for i := range s.chunks {
		if s.chunks[i].SourceName == sourceName {
			ids = append(ids, s.chunks[i].ID)
		}
	}
	return ids, nil
}

// Count returns the total number of chunks.
func (s *ChunkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// CountMissingEmbeddings returns how many chunks have no embedding.
func (s *ChunkStore) CountMissingEmbeddings(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.chunks {
		if !s.chunks[i].HasEmbedding() {
			n++
		}
	}
	return n, nil
}

// ListMissingEmbeddings returns up to limit chunks without an embedding.
func (s *ChunkStore) ListMissingEmbeddings(_ context.Context, limit int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Chunk
	for i := range s.chunks {
		if s.chunks[i].HasEmbedding() {
			continue
		}
		result = append(result, s.chunks[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// SetEmbedding back-fills the embedding of a chunk that has none.
func (s *ChunkStore) SetEmbedding(_ context.Context, id string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.chunks, func(c domain.Chunk) bool { return c.ID == id })
	if idx < 0 {
		return domain.ErrNotFound
	}
	if s.chunks[idx].HasEmbedding() {
		return domain.ErrEmbeddingAlreadySet
	}

	updated := slices.Clone(s.chunks)
	updated[idx].Embedding = slices.Clone(vec)
	if md := cloneMetadata(updated[idx].Metadata); md != nil {
		delete(md, domain.MetaEmbeddingPending)
		updated[idx].Metadata = md
	}
	s.chunks = updated
	return nil
}

// ListSources summarises chunk counts per source.
func (s *ChunkStore) ListSources(_ context.Context) ([]domain.SourceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := make(map[string]*domain.SourceSummary)
	for i := range s.chunks {
		c := &s.chunks[i]
		sum, ok := bySource[c.SourceName]
		if !ok {
			sum = &domain.SourceSummary{SourceName: c.SourceName}
			bySource[c.SourceName] = sum
		}
		sum.ChunkCount++
		if c.CreatedAt.After(sum.LastIngested) {
			sum.LastIngested = c.CreatedAt
		}
	}

	result := make([]domain.SourceSummary, 0, len(bySource))
	for _, sum := range bySource {
		result = append(result, *sum)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SourceName < result[j].SourceName
	})
	return result, nil
}

// Close marks the store closed. Later writes and scans fail.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
