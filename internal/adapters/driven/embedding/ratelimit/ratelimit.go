// Package ratelimit wraps an embedding service with a token-bucket limiter.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultBackoff is how long calls pause after the provider reports a rate limit.
const DefaultBackoff = 10 * time.Second

// Config configures the limiter.
type Config struct {
	// RequestsPerSecond is the sustained rate. Must be > 0.
	RequestsPerSecond float64

	// BurstSize is the maximum burst (default 1).
	BurstSize int

	// Backoff is the pause after a rate-limited response (default 10s).
	Backoff time.Duration
}

// EmbeddingService limits calls to the wrapped service.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns inner unchanged when rps <= 0, otherwise a limited service.
func Wrap(inner driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if rps <= 0 || inner == nil {
		return inner
	}
	return New(inner, Config{RequestsPerSecond: rps})
}

// New creates a rate-limited embedding service.
func New(inner driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		backoff: cfg.Backoff,
	}
}

// Wait blocks until a call may be made.
// It also respects any backoff set after a rate-limited response.
func (s *EmbeddingService) Wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return s.limiter.Wait(ctx)
}

// recordRateLimit pauses later calls for the backoff period.
func (s *EmbeddingService) recordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = time.Now().Add(s.backoff)
}

// Embed waits for the limiter then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := s.inner.Embed(ctx, text)
	if errors.Is(err, domain.ErrRateLimited) {
		logger.Warn("Embedding provider rate limited; pausing %s", s.backoff)
		s.recordRateLimit()
	}
	return vec, err
}

// Dimensions delegates to the wrapped service.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName delegates to the wrapped service.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping delegates without consuming a token.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error { return s.inner.Close() }
