package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService is the retrieval-augmented query path:
// query text, embedding, search, context items.
type RetrievalService struct {
	embedder driven.EmbeddingService
	searcher driving.Searcher
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(embedder driven.EmbeddingService, searcher driving.Searcher) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		searcher: searcher,
	}
}

// Retrieve embeds query and returns the best matching chunks as context items.
// An embedding failure is returned as is; a zero vector is never substituted.
func (s *RetrievalService) Retrieve(
	ctx context.Context,
	query string,
	opts domain.RetrieveOptions,
) ([]domain.ContextItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	searchOpts := domain.SearchOptions{Limit: opts.TopK, Threshold: opts.Threshold}
	if err := searchOpts.Validate(); err != nil {
		return nil, err
	}

	vec, err := embedText(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Deduplication happens after ranking, so every candidate above the
	// threshold is needed to fill TopK distinct sources.
	if opts.DedupeBySource {
		searchOpts.Limit = math.MaxInt32
	}

	hits, err := s.searcher.Search(ctx, vec, searchOpts)
	if err != nil {
		return nil, err
	}

	if opts.DedupeBySource {
		hits = dedupeBySource(hits)
		if len(hits) > opts.TopK {
			hits = hits[:opts.TopK]
		}
	}

	items := make([]domain.ContextItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, domain.ContextItem{
			SourceName:      h.Chunk.SourceName,
			ChunkText:       h.Chunk.Text,
			SimilarityScore: h.Similarity,
			SequenceIndex:   h.Chunk.SequenceIndex,
		})
	}

	logger.Debug("retrieve: %d context items for %q", len(items), truncate(query, 50))
	return items, nil
}

// dedupeBySource keeps the first, and so best-scoring, hit of each source.
func dedupeBySource(hits []domain.ScoredChunk) []domain.ScoredChunk {
	seen := make(map[string]struct{}, len(hits))
	out := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.Chunk.SourceName]; ok {
			continue
		}
		seen[h.Chunk.SourceName] = struct{}{}
		out = append(out, h)
	}
	return out
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
