// Package ollama embeds text with a model served by a local Ollama daemon.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/transport"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// knownDimensions lists output sizes of common embedding models, keyed by
// untagged name.
var knownDimensions = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
}

// Config configures the service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the vector size. Zero uses the known size of Model, or
	// learns it from the first response.
	Dimensions int
}

// EmbeddingService calls /api/embed one text at a time.
type EmbeddingService struct {
	http    *transport.Client
	baseURL string
	model   string

	mu         sync.RWMutex
	dimensions int
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	// Truncate lets the daemon cut input that exceeds the model context
	// instead of failing the request.
	Truncate bool `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewEmbeddingService creates an Ollama embedder.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = knownDimensions[baseName(cfg.Model)]
	}

	return &EmbeddingService{
		http:       transport.NewClient(cfg.Timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns the vector for text. Once the dimension is known, a
// response of another size is rejected.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewEmbeddingError("empty input", nil)
	}

	var resp embedResponse
	err := s.http.PostJSON(ctx, s.baseURL+"/api/embed", nil,
		embedRequest{Model: s.model, Input: text, Truncate: true}, &resp)
	if err != nil {
		return nil, domain.NewEmbeddingError("ollama request", err)
	}
	if resp.Error != "" {
		return nil, domain.NewEmbeddingError("ollama: "+resp.Error, nil)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, domain.NewEmbeddingError("ollama returned an empty vector", nil)
	}
	vec := resp.Embeddings[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.dimensions == 0:
		s.dimensions = len(vec)
	case s.dimensions != len(vec):
		return nil, domain.NewEmbeddingError(
			fmt.Sprintf("ollama returned %d dimensions, expected %d", len(vec), s.dimensions), nil)
	}
	return vec, nil
}

// Dimensions returns the vector size, or 0 before it is known.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the daemon answers and has the model pulled, without
// running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	body, err := s.http.Get(ctx, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: ollama: %v", domain.ErrEmbeddingUnavailable, err)
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	want := withTag(s.model)
	for _, m := range tags.Models {
		if withTag(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("%w: ollama model %q is not available (run 'ollama pull %s')",
		domain.ErrEmbeddingUnavailable, s.model, s.model)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

func baseName(model string) string {
	name, _, _ := strings.Cut(model, ":")
	return name
}

func withTag(model string) string {
	if strings.Contains(model, ":") {
		return model
	}
	return model + ":latest"
}
