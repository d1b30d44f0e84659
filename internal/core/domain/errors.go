package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no normaliser can extract text from a document.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Search-and-chat is disabled; retrieval still works.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed its connectivity check.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the search subsystem cannot serve queries,
	// typically because the chunk store is unreachable.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Retrieval Errors.

	// ErrEmbedding indicates the embedding provider failed or returned an empty vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates two vectors of different dimensionality were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStorage indicates the chunk store was unreachable or rejected an operation.
	ErrStorage = errors.New("storage failure")

	// ErrChunkingConfig indicates an invalid chunk size / overlap combination.
	ErrChunkingConfig = errors.New("invalid chunking configuration")

	// ErrEmbeddingAlreadySet indicates a back-fill targeted a chunk that already has an embedding.
	ErrEmbeddingAlreadySet = errors.New("embedding already set")
)

// EmbeddingError reports a provider failure or an unusable vector.
type EmbeddingError struct {
	// Reason is a short description of what went wrong.
	Reason string

	// Err is the underlying provider error, if any.
	Err error
}

// NewEmbeddingError wraps err as an EmbeddingError.
func NewEmbeddingError(reason string, err error) error {
	return &EmbeddingError{Reason: reason, Err: err}
}

func (e *EmbeddingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("embedding failed: %s", e.Reason)
	}
	return fmt.Sprintf("embedding failed: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Is matches ErrEmbedding.
func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// DimensionMismatchError reports vectors of different lengths.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// StorageError reports a chunk store failure.
type StorageError struct {
	// Op is the store operation that failed (e.g., "put").
	Op string

	// Err is the underlying driver error.
	Err error
}

// NewStorageError wraps err as a StorageError for op.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ChunkingConfigError reports an unusable chunk size / overlap pair.
type ChunkingConfigError struct {
	ChunkSize int
	Overlap   int
}

func (e *ChunkingConfigError) Error() string {
	return fmt.Sprintf("invalid chunking configuration: chunk_size=%d overlap=%d "+
		"(need chunk_size > 0 and 0 <= overlap < chunk_size)", e.ChunkSize, e.Overlap)
}

// Is matches ErrChunkingConfig.
func (e *ChunkingConfigError) Is(target error) bool { return target == ErrChunkingConfig }

// ValidateChunking returns a ChunkingConfigError unless
// chunkSize > 0 and 0 <= overlap < chunkSize.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return &ChunkingConfigError{ChunkSize: chunkSize, Overlap: overlap}
	}
	return nil
}
