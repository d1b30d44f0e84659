// Package ollama answers chat requests with a model served by a local
// Ollama daemon.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/transport"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second

	// DefaultKeepAlive keeps the model loaded between questions of one
	// session without pinning memory indefinitely.
	DefaultKeepAlive = "5m"
)

// LLMConfig configures the service. Zero values take the defaults above.
type LLMConfig struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	KeepAlive string
}

// LLMService talks to /api/chat with streaming disabled.
type LLMService struct {
	http      *transport.Client
	baseURL   string
	model     string
	keepAlive string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generation struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model     string      `json:"model"`
	Messages  []message   `json:"messages"`
	Stream    bool        `json:"stream"`
	KeepAlive string      `json:"keep_alive,omitempty"`
	Options   *generation `json:"options,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewLLMService creates an Ollama chat client.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = DefaultKeepAlive
	}

	return &LLMService{
		http:      transport.NewClient(cfg.Timeout),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}
}

// Chat sends the conversation and returns the trimmed reply. A model the
// daemon does not have maps to domain.ErrLLMUnavailable, as does an
// empty reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", domain.ErrInvalidInput)
	}

	req := chatRequest{
		Model:     s.model,
		Messages:  make([]message, 0, len(messages)),
		KeepAlive: s.keepAlive,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.Options = &generation{NumPredict: opts.MaxTokens, Temperature: opts.Temperature}
	}

	var resp chatResponse
	if err := s.http.PostJSON(ctx, s.baseURL+"/api/chat", nil, req, &resp); err != nil {
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", s.missingModel()
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", resp.Error)
	}

	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: ollama returned an empty reply", domain.ErrLLMUnavailable)
	}
	return reply, nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the daemon answers and has the model pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	body, err := s.http.Get(ctx, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: ollama: %v", domain.ErrLLMUnavailable, err)
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, s.model) {
			return nil
		}
	}
	return s.missingModel()
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}

func (s *LLMService) missingModel() error {
	return fmt.Errorf("%w: ollama model %q is not available (run 'ollama pull %s')",
		domain.ErrLLMUnavailable, s.model, s.model)
}

// sameModel treats an untagged name as ":latest".
func sameModel(a, b string) bool {
	norm := func(s string) string {
		if !strings.Contains(s, ":") {
			return s + ":latest"
		}
		return s
	}
	return norm(a) == norm(b)
}
