// Package openai provides an embedding service adapter for the OpenAI API
// and Azure OpenAI deployments.
package openai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/transport"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI or Azure API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// For Azure this is the resource endpoint, e.g. https://x.openai.azure.com.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Deployment switches to Azure OpenAI when set.
	Deployment string

	// APIVersion is the Azure api-version query parameter.
	APIVersion string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only sent to text-embedding-3-* models.
	Dimensions int

	// MaxRetries bounds retries on 429 and 5xx responses.
	MaxRetries int
}

// EmbeddingService generates embeddings using the OpenAI API.
type EmbeddingService struct {
	http       *transport.Client
	baseURL    string
	apiKey     string
	model      string
	deployment string
	apiVersion string
	sendDims   bool

	mu         sync.RWMutex
	dimensions int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model,omitempty"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Deployment != "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: Azure endpoint is required for deployment %q", cfg.Deployment)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Deployment != "" && cfg.APIVersion == "" {
		cfg.APIVersion = domain.DefaultAzureAPIVersion
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[cfg.Model]
	}

	client := transport.NewClient(cfg.Timeout)
	if cfg.MaxRetries > 0 {
		client.MaxRetries = cfg.MaxRetries
	}

	return &EmbeddingService{
		http:       client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		sendDims:   cfg.Dimensions > 0 && strings.HasPrefix(cfg.Model, "text-embedding-3"),
		dimensions: dimensions,
	}, nil
}

// IsAzure reports whether requests go to an Azure deployment.
func (s *EmbeddingService) IsAzure() bool {
	return s.deployment != ""
}

func (s *EmbeddingService) endpoint(path string) string {
	if s.IsAzure() {
		return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
			s.baseURL, url.PathEscape(s.deployment), path, url.QueryEscape(s.apiVersion))
	}
	return s.baseURL + "/" + path
}

func (s *EmbeddingService) headers() map[string]string {
	if s.IsAzure() {
		return map[string]string{"api-key": s.apiKey}
	}
	return map[string]string{"Authorization": "Bearer " + s.apiKey}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewEmbeddingError("empty input", nil)
	}
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{Input: texts}
	if !s.IsAzure() {
		reqBody.Model = s.model
	}
	if s.sendDims {
		reqBody.Dimensions = s.Dimensions()
	}

	var embedResp embeddingResponse
	if err := s.http.PostJSON(ctx, s.endpoint("embeddings"), s.headers(), reqBody, &embedResp); err != nil {
		return nil, domain.NewEmbeddingError("openai request", err)
	}
	if embedResp.Error != nil {
		return nil, domain.NewEmbeddingError("openai error: "+embedResp.Error.Message, nil)
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			continue
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}

	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, domain.NewEmbeddingError(fmt.Sprintf("no embedding returned for input %d", i), nil)
		}
	}
	s.learnDimensions(len(embeddings[0]))

	return embeddings, nil
}

func (s *EmbeddingService) learnDimensions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = n
	}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	if s.IsAzure() {
		return s.deployment
	}
	return s.model
}

// Ping validates the service is reachable.
// OpenAI is checked through the /models endpoint; an Azure deployment has
// no such endpoint, so a one-word embedding is requested instead.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if s.IsAzure() {
		if _, err := s.Embed(ctx, "ping"); err != nil {
			return fmt.Errorf("openai: ping failed: %w", err)
		}
		return nil
	}
	if _, err := s.http.Get(ctx, s.baseURL+"/models", s.headers()); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
