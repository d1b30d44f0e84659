package driving

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// IngestService chunks, embeds and stores documents.
type IngestService interface {
	// Ingest processes one document. Per-chunk failures are counted in the
	// result, not returned; an error means the document as a whole failed.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// IngestBatch processes documents concurrently. A failed document never
	// aborts the batch; its error is recorded in BatchResult.Errors.
	IngestBatch(ctx context.Context, reqs []domain.IngestRequest) (*domain.BatchResult, error)

	// IngestDocument extracts text from raw and ingests it with req's flags
	// and metadata. An empty req.SourceName uses raw.Name.
	IngestDocument(ctx context.Context, raw *domain.RawDocument, req domain.IngestRequest) (*domain.IngestResult, error)

	// DeleteSource removes every chunk of a source and returns the count.
	DeleteSource(ctx context.Context, sourceName string) (int, error)
}

// SyncService feeds connector output through ingestion.
type SyncService interface {
	// Sync ingests every document the connector lists, skipping sources
	// that already exist.
	Sync(ctx context.Context, conn driven.Connector) (*domain.BatchResult, error)

	// Watch re-ingests created and updated documents and deletes removed
	// ones until ctx is cancelled.
	Watch(ctx context.Context, conn driven.Connector) error
}

// MaintenanceService covers store upkeep and diagnostics.
type MaintenanceService interface {
	// Backfill embeds up to limit chunks stored without an embedding.
	Backfill(ctx context.Context, limit int) (*domain.BackfillResult, error)

	// Stats summarises the chunk store.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Health checks the store and the AI providers.
	Health(ctx context.Context) *domain.HealthReport
}
