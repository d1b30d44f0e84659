package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
)

var userHi = []driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}}

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(LLMConfig{BaseURL: "http://host:11434/"})

	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, "http://host:11434", svc.baseURL)
	assert.Equal(t, DefaultKeepAlive, svc.keepAlive)
}

func TestLLMService_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "5m", req.KeepAlive)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, driven.RoleSystem, req.Messages[0].Role)
		require.NotNil(t, req.Options)
		assert.Equal(t, 200, req.Options.NumPredict)

		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"hello there\n"},"done":true}`))
	}))
	defer server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL})
	got, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "be brief"},
		{Role: driven.RoleUser, Content: "hi"},
	}, driven.ChatOptions{MaxTokens: 200})

	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
}

func TestLLMService_Chat_NoOptionsWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.Options)
		_, _ = w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer server.Close()

	_, err := NewLLMService(LLMConfig{BaseURL: server.URL}).Chat(context.Background(), userHi, driven.ChatOptions{})
	require.NoError(t, err)
}

func TestLLMService_Chat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantMsg string
	}{
		{"error field", http.StatusOK, `{"error":"model not loaded"}`, nil, "model not loaded"},
		{"missing model", http.StatusNotFound, `{"error":"model 'x' not found"}`, domain.ErrLLMUnavailable, "ollama pull"},
		{"empty reply", http.StatusOK, `{"message":{"content":"  "}}`, domain.ErrLLMUnavailable, "empty reply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewLLMService(LLMConfig{BaseURL: server.URL}).Chat(context.Background(), userHi, driven.ChatOptions{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestLLMService_Chat_NoMessages(t *testing.T) {
	_, err := NewLLMService(LLMConfig{}).Chat(context.Background(), nil, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLLMService_Ping(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		tags    string
		wantErr bool
	}{
		{"untagged matches latest", "llama3.2", `{"models":[{"name":"llama3.2:latest"}]}`, false},
		{"exact tag", "qwen2.5:7b", `{"models":[{"name":"qwen2.5:7b"}]}`, false},
		{"other tag", "qwen2.5:7b", `{"models":[{"name":"qwen2.5:latest"}]}`, true},
		{"no models", "llama3.2", `{"models":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/tags", r.URL.Path)
				_, _ = w.Write([]byte(tt.tags))
			}))
			defer server.Close()

			err := NewLLMService(LLMConfig{BaseURL: server.URL, Model: tt.model}).Ping(context.Background())

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLLMService_Ping_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	svc := NewLLMService(LLMConfig{BaseURL: server.URL})
	svc.http.MaxRetries = 0

	assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrLLMUnavailable)
}
