package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure MaintenanceService implements the interface.
var _ driving.MaintenanceService = (*MaintenanceService)(nil)

// healthTimeout bounds each provider ping.
const healthTimeout = 5 * time.Second

// MaintenanceService implements back-fill, statistics and health checks.
type MaintenanceService struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	llm      driven.LLMService
}

// NewMaintenanceService creates a maintenance service.
// embedder and llm may be nil.
func NewMaintenanceService(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
) *MaintenanceService {
	return &MaintenanceService{
		store:    store,
		embedder: embedder,
		llm:      llm,
	}
}

// Backfill embeds chunks stored without an embedding.
// A chunk that fails is counted and left for the next run.
func (s *MaintenanceService) Backfill(ctx context.Context, limit int) (*domain.BackfillResult, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Embedding Back-fill")

	missing, err := s.store.ListMissingEmbeddings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}

	result := &domain.BackfillResult{Scanned: len(missing)}
	for i := range missing {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		c := &missing[i]

		vec, err := embedText(ctx, s.embedder, c.Text)
		if err != nil {
			result.Failed++
			logger.Warn("backfill %s: %v", c.ID, err)
			continue
		}

		if err := s.store.SetEmbedding(ctx, c.ID, vec); err != nil {
			// Another back-fill got there first; nothing left to do.
			if errors.Is(err, domain.ErrEmbeddingAlreadySet) {
				continue
			}
			result.Failed++
			logger.Warn("backfill %s: %v", c.ID, err)
			continue
		}
		result.Repaired++
	}

	logger.Info("backfill: %d scanned, %d repaired, %d failed", result.Scanned, result.Repaired, result.Failed)
	return result, nil
}

// Stats summarises the chunk store.
func (s *MaintenanceService) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	missing, err := s.store.CountMissingEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("count missing embeddings: %w", err)
	}

	if sources == nil {
		sources = []domain.SourceSummary{}
	}
	return &domain.Stats{
		TotalChunks:      total,
		UniqueSources:    len(sources),
		MissingEmbedding: missing,
		Sources:          sources,
	}, nil
}

// Health checks the store, the embedding provider and the LLM.
func (s *MaintenanceService) Health(ctx context.Context) *domain.HealthReport {
	report := &domain.HealthReport{}

	store := domain.ComponentHealth{Name: "store", Status: domain.HealthOK}
	if n, err := s.store.Count(ctx); err != nil {
		store.Status = domain.HealthUnavailable
		store.Detail = err.Error()
	} else {
		store.Detail = fmt.Sprintf("%d chunks", n)
	}
	report.Components = append(report.Components, store)

	embedding := domain.ComponentHealth{Name: "embedding", Status: domain.HealthDisabled}
	if s.embedder != nil {
		embedding.Detail = s.embedder.ModelName()
		embedding.Status = pingStatus(ctx, s.embedder.Ping, &embedding.Detail)
	}
	report.Components = append(report.Components, embedding)

	llm := domain.ComponentHealth{Name: "llm", Status: domain.HealthDisabled}
	if s.llm != nil {
		llm.Detail = s.llm.ModelName()
		llm.Status = pingStatus(ctx, s.llm.Ping, &llm.Detail)
	}
	report.Components = append(report.Components, llm)

	return report
}

func pingStatus(ctx context.Context, ping func(context.Context) error, detail *string) string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		*detail = fmt.Sprintf("%s: %v", *detail, err)
		return domain.HealthUnavailable
	}
	return domain.HealthOK
}
