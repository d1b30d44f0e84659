package domain

import "fmt"

// DefaultSimilarityThreshold is used when a caller does not choose one.
const DefaultSimilarityThreshold = 0.3

// DefaultTopK is the default number of results returned by a search.
const DefaultTopK = 5

// ScoredChunk is a search hit: a stored chunk and its cosine similarity
// to the query vector.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Limit is the maximum number of results (must be >= 1).
	Limit int

	// Threshold is the minimum similarity a result must reach, in [-1, 1].
	Threshold float64
}

// Validate checks the option ranges.
func (o SearchOptions) Validate() error {
	if o.Limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1", ErrInvalidInput)
	}
	if !(o.Threshold >= -1 && o.Threshold <= 1) { // rejects NaN too
		return fmt.Errorf("%w: similarity threshold must be within [-1, 1]", ErrInvalidInput)
	}
	return nil
}

// RetrieveOptions configures the retrieval-augmented query path.
type RetrieveOptions struct {
	// TopK is the maximum number of context items.
	TopK int

	// Threshold is the minimum similarity score.
	Threshold float64

	// ThresholdSet marks Threshold as chosen by the caller, so that an
	// explicit zero is kept rather than replaced by a default.
	ThresholdSet bool

	// DedupeBySource keeps only the best-scoring chunk of each source.
	DedupeBySource bool
}

// ContextItem is the caller-facing shape of one retrieval hit,
// ready to be injected into a prompt.
type ContextItem struct {
	SourceName      string  `json:"source_name"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
	SequenceIndex   int     `json:"sequence_index"`
}

// Answer is the result of a search-and-chat round trip.
type Answer struct {
	// Text is the language model's reply.
	Text string `json:"answer"`

	// Sources are the context items that were given to the model.
	Sources []ContextItem `json:"sources"`

	// ContextUsed reports whether any retrieved context was included.
	ContextUsed bool `json:"context_used"`

	// Model is the language model that produced the reply.
	Model string `json:"model,omitempty"`
}
