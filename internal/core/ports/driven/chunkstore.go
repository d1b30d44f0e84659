package driven

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// ChunkStore persists chunks and serves the similarity scan.
//
// All chunks of one store share an embedding dimensionality. Chunks are
// immutable once written except for SetEmbedding on a chunk that has none.
// Implementations return domain.StorageError (or wrap it) when the backing
// storage is unreachable; callers decide whether to retry.
type ChunkStore interface {
	// Put writes a chunk and returns its ID.
	// An empty chunk.ID is replaced by a generated one.
	// A written chunk is visible to every later scan.
	Put(ctx context.Context, chunk *domain.Chunk) (string, error)

	// ExistsForSource reports whether any chunk carries sourceName.
	ExistsForSource(ctx context.Context, sourceName string) (bool, error)

	// ScanWithEmbeddings calls fn for every chunk with a non-empty embedding.
	// Chunks are streamed, never materialised as a whole. Each call starts a
	// fresh pass. Returning an error from fn stops the scan and returns it.
	// Scan order is stable for one store but not insertion order.
	ScanWithEmbeddings(ctx context.Context, fn func(domain.Chunk) error) error

	// DeleteBySource removes every chunk with sourceName and returns how many
	// were removed. Per-row failures are logged and skipped.
	DeleteBySource(ctx context.Context, sourceName string) (int, error)

	// ChunkIDsForSource returns the IDs of every chunk with sourceName.
	ChunkIDsForSource(ctx context.Context, sourceName string) ([]string, error)

	// DeleteChunks removes the chunks with the given IDs and returns how
	// many were removed. Unknown IDs are ignored.
	DeleteChunks(ctx context.Context, ids []string) (int, error)

	// Count returns the total number of chunks, with or without embeddings.
	Count(ctx context.Context) (int, error)

	// CountMissingEmbeddings returns how many chunks have no embedding.
	CountMissingEmbeddings(ctx context.Context) (int, error)

	// ListMissingEmbeddings returns up to limit chunks that have no embedding.
	// A limit <= 0 means no limit.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Chunk, error)

	// SetEmbedding stores vec on a chunk that has none.
	// Returns domain.ErrNotFound for an unknown ID and
	// domain.ErrEmbeddingAlreadySet when the chunk already has one.
	SetEmbedding(ctx context.Context, id string, vec []float32) error

	// ListSources summarises chunk counts per source, ordered by source name.
	ListSources(ctx context.Context) ([]domain.SourceSummary, error)

	// Close releases resources.
	Close() error
}
