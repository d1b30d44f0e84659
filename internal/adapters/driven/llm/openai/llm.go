// Package openai provides an LLM service adapter for the OpenAI chat API
// and Azure OpenAI deployments.
package openai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/adapters/driven/transport"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI or Azure API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// For Azure this is the resource endpoint.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Deployment switches to Azure OpenAI when set.
	Deployment string

	// APIVersion is the Azure api-version query parameter.
	APIVersion string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides chat completions using the OpenAI API.
type LLMService struct {
	http       *transport.Client
	baseURL    string
	apiKey     string
	model      string
	deployment string
	apiVersion string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model,omitempty"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
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
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.Deployment != "" && cfg.APIVersion == "" {
		cfg.APIVersion = domain.DefaultAzureAPIVersion
	}

	return &LLMService{
		http:       transport.NewClient(cfg.Timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
	}, nil
}

// IsAzure reports whether requests go to an Azure deployment.
func (s *LLMService) IsAzure() bool {
	return s.deployment != ""
}

func (s *LLMService) chatURL() string {
	if s.IsAzure() {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			s.baseURL, url.PathEscape(s.deployment), url.QueryEscape(s.apiVersion))
	}
	return s.baseURL + "/chat/completions"
}

func (s *LLMService) headers() map[string]string {
	if s.IsAzure() {
		return map[string]string{"api-key": s.apiKey}
	}
	return map[string]string{"Authorization": "Bearer " + s.apiKey}
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", domain.ErrInvalidInput)
	}

	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{Role: msg.Role, Content: msg.Content}
	}

	reqBody := chatCompletionRequest{Messages: chatMessages}
	if !s.IsAzure() {
		reqBody.Model = s.model
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		reqBody.Temperature = &t
	}

	var chatResp chatCompletionResponse
	if err := s.http.PostJSON(ctx, s.chatURL(), s.headers(), reqBody, &chatResp); err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	if s.IsAzure() {
		return s.deployment
	}
	return s.model
}

// Ping validates the service is reachable.
// Azure deployments are checked with a one-token completion.
func (s *LLMService) Ping(ctx context.Context) error {
	if s.IsAzure() {
		_, err := s.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: "ping"}},
			driven.ChatOptions{MaxTokens: 1})
		if err != nil {
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
func (s *LLMService) Close() error {
	return nil
}
