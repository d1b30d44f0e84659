package domain

import "time"

// Chunk is the unit of retrieval: a bounded slice of source text stored
// together with its embedding vector.
//
// Chunks are immutable once written. The only permitted mutation is
// back-filling Embedding on a chunk that was stored without one.
type Chunk struct {
	// ID is unique per store and generated at write time.
	ID string

	// SourceName is the logical origin (file name, URL-derived name, page title).
	// It partitions chunks for exists/delete and attributes them in answers.
	SourceName string

	// SequenceIndex is the zero-based position of this chunk within its source.
	SequenceIndex int

	// Text is the chunk's UTF-8 content.
	Text string

	// Embedding is the vector representation. Empty means not yet searchable.
	Embedding []float32

	// Metadata carries provenance. It is passed through and never read by search.
	Metadata map[string]any

	// CreatedAt is when the chunk was written.
	CreatedAt time.Time
}

// HasEmbedding reports whether the chunk can take part in similarity search.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Dimensions returns the length of the chunk's embedding.
func (c *Chunk) Dimensions() int {
	return len(c.Embedding)
}

// Well-known metadata keys written by the ingestion pipeline.
const (
	MetaOrigin           = "origin"
	MetaMIMEType         = "mime_type"
	MetaTitle            = "title"
	MetaURI              = "uri"
	MetaCharCount        = "char_count"
	MetaEmbeddingModel   = "embedding_model"
	MetaVectorDimensions = "vector_dimensions"
	MetaEmbeddingPending = "embedding_pending"
)

// Origin values for MetaOrigin.
const (
	OriginText = "text"
	OriginFile = "file"
	OriginURL  = "url"
)
