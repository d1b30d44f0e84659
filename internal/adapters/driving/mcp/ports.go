package mcp

import (
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Retrieval backs the search tool. Required.
	Retrieval driving.RetrievalService

	// Ingest backs the ingest tool.
	Ingest driving.IngestService

	// Chat backs the ask tool. Nil when no language model is configured.
	Chat driving.ChatService

	// Maintenance backs the sources resources.
	Maintenance driving.MaintenanceService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
