package domain

import "time"

// SourceSummary describes the chunks stored for one source.
type SourceSummary struct {
	SourceName   string    `json:"source_name"`
	ChunkCount   int       `json:"chunk_count"`
	LastIngested time.Time `json:"last_ingested"`
}

// Stats is a snapshot of the chunk store.
type Stats struct {
	TotalChunks      int             `json:"total_chunks"`
	UniqueSources    int             `json:"unique_sources"`
	MissingEmbedding int             `json:"missing_embedding"`
	Sources          []SourceSummary `json:"sources"`
}

// ComponentHealth is the health of one dependency.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Health status values.
const (
	HealthOK          = "ok"
	HealthUnavailable = "unavailable"
	HealthDisabled    = "disabled"
)

// HealthReport aggregates component health.
type HealthReport struct {
	Components []ComponentHealth `json:"components"`
}

// Healthy returns true when no component is unavailable.
func (h HealthReport) Healthy() bool {
	for _, c := range h.Components {
		if c.Status == HealthUnavailable {
			return false
		}
	}
	return true
}
