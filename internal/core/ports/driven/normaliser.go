package driven

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// Normaliser extracts plain text from a raw document.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89.
	// Fallback normalisers return 1-9.
	Priority() int

	// Normalise extracts text from a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)
}

// NormaliserRegistry selects a normaliser by MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser to the registry.
	Register(n Normaliser)

	// Get returns the highest priority normaliser for mimeType,
	// or nil when none is registered.
	Get(mimeType string) Normaliser

	// SupportedMIMETypes returns every registered MIME type, sorted.
	SupportedMIMETypes() []string

	// Normalise dispatches raw to the best normaliser.
	// Returns domain.ErrUnsupportedFormat when none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)
}

// Chunker splits document text into overlapping windows.
type Chunker interface {
	// Chunk returns the trimmed, non-empty pieces of text in order.
	Chunk(text string) []string
}
