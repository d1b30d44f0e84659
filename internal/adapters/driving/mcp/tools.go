package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

// defaultToolTopK is used by the search tool when top_k is omitted.
const defaultToolTopK = 5

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query               string   `json:"query" jsonschema:"the question or phrase to search for"`
	TopK                int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" jsonschema:"minimum cosine similarity between -1 and 1 (default 0.3)"`
	Dedupe              bool     `json:"dedupe,omitempty" jsonschema:"return at most one chunk per source"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is one retrieved chunk.
type ChunkOutput struct {
	SourceName      string  `json:"source_name"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
	SequenceIndex   int     `json:"sequence_index"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	SourceName string `json:"source_name" jsonschema:"name that identifies the document"`
	Text       string `json:"text" jsonschema:"the document text"`
	Replace    bool   `json:"replace,omitempty" jsonschema:"replace any chunks already stored for this source"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	SourceName     string `json:"source_name"`
	ChunksCreated  int    `json:"chunks_created"`
	ChunksFailed   int    `json:"chunks_failed"`
	ChunksReplaced int    `json:"chunks_replaced,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from stored documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks given to the model (default 3)"`

	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty" jsonschema:"minimum cosine similarity between -1 and 1 (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer      string        `json:"answer"`
	Sources     []ChunkOutput `json:"sources"`
	ContextUsed bool          `json:"context_used"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over ingested documents; returns the most similar chunks",
	}, s.handleSearch)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Chunk, embed and store a text document",
		}, s.handleIngest)
	}

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using retrieved document context",
		}, s.handleAsk)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.RetrieveOptions{
		TopK:           input.TopK,
		Threshold:      domain.DefaultSimilarityThreshold,
		DedupeBySource: input.Dedupe,
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultToolTopK
	}
	if input.SimilarityThreshold != nil {
		opts.Threshold = *input.SimilarityThreshold
	}

	items, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: toChunkOutputs(items),
		Count:   len(items),
	}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, errToolUnavailable
	}

	res, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		SourceName: input.SourceName,
		Text:       input.Text,
		Replace:    input.Replace,
		Metadata:   map[string]any{domain.MetaOrigin: domain.OriginText},
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		SourceName:     res.SourceName,
		ChunksCreated:  res.ChunksCreated,
		ChunksFailed:   res.ChunksFailed,
		ChunksReplaced: res.ChunksReplaced,
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errToolUnavailable
	}

	opts := domain.RetrieveOptions{TopK: input.TopK}
	if input.SimilarityThreshold != nil {
		opts.Threshold = *input.SimilarityThreshold
		opts.ThresholdSet = true
	}

	answer, err := s.ports.Chat.Ask(ctx, input.Question, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:      answer.Text,
		Sources:     toChunkOutputs(answer.Sources),
		ContextUsed: answer.ContextUsed,
	}, nil
}

func toChunkOutputs(items []domain.ContextItem) []ChunkOutput {
	out := make([]ChunkOutput, len(items))
	for i, item := range items {
		out[i] = ChunkOutput{
			SourceName:      item.SourceName,
			ChunkText:       item.ChunkText,
			SimilarityScore: item.SimilarityScore,
			SequenceIndex:   item.SequenceIndex,
		}
	}
	return out
}
