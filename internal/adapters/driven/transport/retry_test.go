package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
)

func fastClient() *Client {
	c := NewClient(5 * time.Second)
	c.BaseDelay = time.Millisecond
	c.MaxDelay = 5 * time.Millisecond
	return c
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer server.Close()

	var out struct {
		Value int `json:"value"`
	}
	err := fastClient().PostJSON(context.Background(), server.URL, map[string]string{"api-key": "secret"},
		map[string]string{"q": "x"}, &out)

	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	err := fastClient().PostJSON(context.Background(), server.URL, nil, struct{}{}, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	err := fastClient().PostJSON(context.Background(), server.URL, nil, struct{}{}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ExhaustedRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := fastClient()
	c.MaxRetries = 2
	_, err := c.Get(context.Background(), server.URL, nil)

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_StopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := fastClient()
	c.BaseDelay = time.Hour
	c.MaxDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, server.URL, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Delay(t *testing.T) {
	c := &Client{BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}

	assert.Equal(t, 200*time.Millisecond, c.delay(0))
	assert.Equal(t, 400*time.Millisecond, c.delay(1))
	assert.Equal(t, 3200*time.Millisecond, c.delay(4))
	assert.Equal(t, 5*time.Second, c.delay(5))
	assert.Equal(t, 5*time.Second, c.delay(40))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryAfter(""))
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, time.Duration(0), retryAfter("soon"))
}
