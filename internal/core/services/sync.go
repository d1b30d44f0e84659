package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.SyncService = (*SyncService)(nil)

// SyncService feeds connector documents through the ingestion pipeline.
type SyncService struct {
	ingest driving.IngestService
}

// NewSyncService creates a new sync service.
func NewSyncService(ingest driving.IngestService) *SyncService {
	return &SyncService{ingest: ingest}
}

// Sync ingests every document the connector lists. Sources that are
// already stored are skipped, so a repeated sync only adds new files.
// Unsupported formats are skipped quietly; other per-document failures
// are recorded in the result.
func (o *SyncService) Sync(ctx context.Context, conn driven.Connector) (*domain.BatchResult, error) {
	// 1. Validate connector
	if err := conn.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s connector: %w", conn.Type(), err)
	}

	logger.Info("Starting %s sync", conn.Type())

	// 2. Drain documents
	docsCh, errsCh := conn.FullSync(ctx)
	batch := &domain.BatchResult{}

	for {
		select {
		case <-ctx.Done():
			return batch, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil {
				return batch, fmt.Errorf("connector error: %w", err)
			}

		case raw, ok := <-docsCh:
			if !ok {
				logger.Info("Sync complete: %d documents, %d chunks, %d errors",
					len(batch.Results), batch.ChunksCreated(), len(batch.Errors))
				return batch, nil
			}
			o.processOne(ctx, &raw, domain.IngestRequest{SkipExisting: true}, batch)
		}
	}
}

// Watch applies connector change events until ctx is cancelled.
// Created and updated documents replace their stored chunks; deleted
// documents lose them.
func (o *SyncService) Watch(ctx context.Context, conn driven.Connector) error {
	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", conn.Type(), err)
	}

	logger.Info("Watching %s for changes", conn.Type())

	for {
		select {
		case <-ctx.Done():
			return nil

		case change, ok := <-changes:
			if !ok {
				return nil
			}

			switch change.Type {
			case domain.ChangeCreated, domain.ChangeUpdated:
				logger.Debug("Processing: %s", change.Document.URI)
				batch := &domain.BatchResult{}
				o.processOne(ctx, &change.Document, domain.IngestRequest{Replace: true}, batch)

			case domain.ChangeDeleted:
				logger.Debug("Deleting: %s", change.Document.Name)
				if _, err := o.ingest.DeleteSource(ctx, change.Document.Name); err != nil {
					logger.Warn("Failed to delete %s: %v", change.Document.Name, err)
				}
			}
		}
	}
}

func (o *SyncService) processOne(
	ctx context.Context,
	raw *domain.RawDocument,
	req domain.IngestRequest,
	batch *domain.BatchResult,
) {
	res, err := o.ingest.IngestDocument(ctx, raw, req)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			logger.Debug("Skipping %s: %v", raw.URI, err)
			return
		}
		logger.Warn("Failed to process %s: %v", raw.URI, err)
		if batch.Errors == nil {
			batch.Errors = make(map[string]string)
		}
		batch.Errors[raw.Name] = err.Error()
		return
	}
	batch.Results = append(batch.Results, *res)
}
