package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// SearchService is the brute-force similarity search engine.
// Every query scans all embedded chunks: O(N·D) for N chunks of dimension D.
type SearchService struct {
	store      driven.ChunkStore
	dimensions int
}

// NewSearchService creates a search engine over store.
// dimensions is the store's embedding size; zero means each query is
// matched against chunks of its own length.
func NewSearchService(store driven.ChunkStore, dimensions int) *SearchService {
	return &SearchService{
		store:      store,
		dimensions: dimensions,
	}
}

// Search ranks every embedded chunk against query.
//
// A query whose length differs from the store dimension fails with
// DimensionMismatchError. Without a configured dimension, the query's
// length is the reference, and the query fails only when no stored chunk
// shares it. Stored chunks of the wrong dimension are
// skipped and reported once per query as a warning. Store failures are
// returned wrapped in domain.ErrSearchUnavailable.
func (s *SearchService) Search(
	ctx context.Context,
	query []float32,
	opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, domain.NewEmbeddingError("empty query vector", nil)
	}

	expected := s.dimensions
	unconfigured := expected == 0
	if unconfigured {
		expected = len(query)
	} else if len(query) != expected {
		return nil, &domain.DimensionMismatchError{Expected: expected, Actual: len(query)}
	}

	var (
		results   []domain.ScoredChunk
		scanned   int
		matched   int
		skipped   int
		otherDims int
	)

	err := s.store.ScanWithEmbeddings(ctx, func(c domain.Chunk) error {
		scanned++

		if c.Dimensions() != expected {
			skipped++
			if otherDims == 0 {
				otherDims = c.Dimensions()
			}
			logger.Debug("search: skipping chunk %s (%d dimensions)", c.ID, c.Dimensions())
			return nil
		}
		matched++

		score, err := domain.CosineSimilarity(query, c.Embedding)
		if err != nil {
			return err
		}
		if score >= opts.Threshold {
			results = append(results, domain.ScoredChunk{Chunk: c, Similarity: score})
		}
		return nil
	})
	if err != nil {
		var dimErr *domain.DimensionMismatchError
		if errors.As(err, &dimErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	// Nothing in the store has the query's length: the query is the odd one out.
	if unconfigured && matched == 0 && skipped > 0 {
		return nil, &domain.DimensionMismatchError{Expected: otherDims, Actual: len(query)}
	}
	if skipped > 0 {
		logger.Warn("search: skipped %d chunks whose embedding is not %d-dimensional", skipped, expected)
	}

	if scanned == 0 {
		s.warnIfUnembedded(ctx)
		return []domain.ScoredChunk{}, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	if results == nil {
		results = []domain.ScoredChunk{}
	}

	logger.Debug("search: %d chunks scanned, %d results", scanned, len(results))
	return results, nil
}

// warnIfUnembedded logs when the store holds chunks but none can be searched.
func (s *SearchService) warnIfUnembedded(ctx context.Context) {
	total, err := s.store.Count(ctx)
	if err != nil || total == 0 {
		return
	}
	logger.Warn("search: %d chunks stored but none have embeddings; run backfill", total)
}
