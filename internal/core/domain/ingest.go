package domain

// IngestRequest is one document to be chunked, embedded and stored.
type IngestRequest struct {
	// SourceName identifies the document. Required.
	SourceName string

	// Text is the raw document text.
	Text string

	// Metadata is copied onto every chunk of the document.
	Metadata map[string]any

	// SkipExisting skips the document when chunks for SourceName already exist.
	SkipExisting bool

	// Replace deletes existing chunks for SourceName before ingesting.
	Replace bool
}

// IngestResult reports what happened to one document.
type IngestResult struct {
	SourceName    string `json:"source_name"`
	ChunksCreated int    `json:"chunks_created"`
	ChunksFailed  int    `json:"chunks_failed"`

	// ChunksDeferred counts failed chunks stored without an embedding
	// for a later back-fill. They are included in ChunksFailed.
	ChunksDeferred int `json:"chunks_deferred,omitempty"`

	// ChunksReplaced is the number of chunks removed by Replace.
	ChunksReplaced int `json:"chunks_replaced,omitempty"`

	// Skipped is true when SkipExisting matched an existing source.
	Skipped bool `json:"skipped,omitempty"`
}

// Total returns the number of chunks the document produced.
func (r IngestResult) Total() int {
	return r.ChunksCreated + r.ChunksFailed
}

// BatchResult aggregates a multi-document ingestion.
type BatchResult struct {
	Results []IngestResult `json:"results"`

	// Errors holds per-document failures keyed by source name.
	Errors map[string]string `json:"errors,omitempty"`
}

// ChunksCreated sums created chunks across all documents.
func (b BatchResult) ChunksCreated() int {
	n := 0
	for _, r := range b.Results {
		n += r.ChunksCreated
	}
	return n
}

// ChunksFailed sums failed chunks across all documents.
func (b BatchResult) ChunksFailed() int {
	n := 0
	for _, r := range b.Results {
		n += r.ChunksFailed
	}
	return n
}

// BackfillResult reports an embedding back-fill pass.
type BackfillResult struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}
