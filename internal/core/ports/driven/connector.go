package driven

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// Connector fetches documents from a data source.
type Connector interface {
	// Type returns the connector type identifier (e.g., "filesystem").
	Type() string

	// Validate checks if the connector is properly configured.
	// For filesystem, this checks the path exists and is readable.
	Validate(ctx context.Context) error

	// FullSync fetches all documents from the source.
	// Both channels are closed when the sync ends.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch listens for real-time changes until ctx is cancelled.
	// Returns an error when the source cannot be watched.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// DocumentFetcher retrieves a single document by location.
type DocumentFetcher interface {
	// Fetch downloads the document at uri.
	Fetch(ctx context.Context, uri string) (*domain.RawDocument, error)
}
