package driving

import (
	"context"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// Searcher ranks stored chunks against a query vector.
//
// The implementation in services is a brute-force linear scan. An ANN
// index can replace it without touching callers.
type Searcher interface {
	// Search returns at most opts.Limit chunks whose cosine similarity to
	// query is >= opts.Threshold, best first. Ties keep scan order.
	// An empty result with a nil error means nothing matched.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.ScoredChunk, error)
}

// RetrievalService turns a natural-language query into prompt-ready context.
type RetrievalService interface {
	// Retrieve embeds query, searches and maps hits to context items,
	// preserving rank order.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.ContextItem, error)
}

// ChatService answers questions from retrieved context with a language model.
type ChatService interface {
	// Ask retrieves context for question and returns the model's answer.
	// Returns domain.ErrLLMUnavailable when no LLM is configured.
	Ask(ctx context.Context, question string, opts domain.RetrieveOptions) (*domain.Answer, error)
}
