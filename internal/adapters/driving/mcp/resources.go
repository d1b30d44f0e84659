package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for assistant resources.
	uriScheme = "assistant://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Ingested sources with chunk counts and last ingestion time",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceName}",
		Name:        "source",
		Description: "Summary of one ingested source",
		MIMEType:    "application/json",
	}, s.handleSourceResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "health",
		Name:        "health",
		Description: "Health of the chunk store and AI providers",
		MIMEType:    "application/json",
	}, s.handleHealthResource)
}

// handleSourcesResource returns every ingested source.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Maintenance == nil {
		return jsonResult(req.Params.URI, []byte("[]")), nil
	}

	stats, err := s.ports.Maintenance.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	sources := stats.Sources
	if sources == nil {
		sources = []domain.SourceSummary{}
	}
	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

// handleSourceResource returns the summary of a single source.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Maintenance == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	name := extractSourceName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Maintenance.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	for _, src := range stats.Sources {
		if src.SourceName != name {
			continue
		}
		data, err := json.MarshalIndent(src, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling source: %w", err)
		}
		return jsonResult(req.Params.URI, data), nil
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// handleHealthResource returns the component health report.
func (s *Server) handleHealthResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Maintenance == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := json.MarshalIndent(s.ports.Maintenance.Health(ctx), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling health: %w", err)
	}
	return jsonResult(req.Params.URI, data), nil
}

func jsonResult(uri string, data []byte) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}
}

// extractSourceName extracts the source name from a URI like
// assistant://sources/{sourceName}. The name may be percent-encoded.
func extractSourceName(uri string) string {
	const prefix = uriScheme + "sources/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	name, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return name
}
