// Package mcp exposes the assistant's retrieval, ingestion and chat to AI
// tools over the Model Context Protocol.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// errToolUnavailable is returned by tools whose backing service is not wired.
var errToolUnavailable = errors.New("mcp: tool is not available in this configuration")
