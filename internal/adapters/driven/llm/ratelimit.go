package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/logger"
)

// DefaultBackoff is used after a 429 response that carries no Retry-After.
const DefaultBackoff = 60 * time.Second

// RateLimitConfig holds rate limiting configuration for a backend.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Ensure RateLimitedBackend implements the interface.
var _ driven.ExtractionBackend = (*RateLimitedBackend)(nil)

// RateLimitedBackend throttles calls to a backend with a token bucket and
// backs off after the backend reports a rate limit.
//
// During a backoff window calls fail immediately with a transient error, so
// the router moves on to the next backend instead of waiting.
type RateLimitedBackend struct {
	next    driven.ExtractionBackend
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimitedBackend wraps next. A non-positive rate disables the token
// bucket but keeps 429 backoff.
func NewRateLimitedBackend(next driven.ExtractionBackend, cfg RateLimitConfig) *RateLimitedBackend {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	return &RateLimitedBackend{
		next:    next,
		limiter: rate.NewLimiter(limit, cfg.BurstSize),
		now:     time.Now,
	}
}

// Name returns the wrapped backend's name.
func (b *RateLimitedBackend) Name() string {
	return b.next.Name()
}

// Extract waits for a token and calls the wrapped backend.
func (b *RateLimitedBackend) Extract(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	retryAt := b.retryAt
	b.mu.Unlock()

	if b.now().Before(retryAt) {
		return "", domain.NewTransientError(b.Name(),
			fmt.Errorf("rate limited until %s", retryAt.Format(time.RFC3339)))
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return "", domain.NewTransientError(b.Name(), fmt.Errorf("rate limiter: %w", err))
	}

	out, err := b.next.Extract(ctx, prompt)
	if err != nil {
		var be *domain.BackendError
		if errors.As(err, &be) && be.StatusCode == http.StatusTooManyRequests {
			b.RecordRateLimitError(be.RetryAfter)
		}
	}
	return out, err
}

// RecordRateLimitError starts a backoff window.
func (b *RateLimitedBackend) RecordRateLimitError(retryAfterSeconds int) {
	backoff := DefaultBackoff
	if retryAfterSeconds > 0 {
		backoff = time.Duration(retryAfterSeconds) * time.Second
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.retryAt = b.now().Add(backoff)
	logger.Warn("%s: rate limited, backing off for %s", b.next.Name(), backoff)
}

// Ping checks the wrapped backend.
func (b *RateLimitedBackend) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// Close closes the wrapped backend.
func (b *RateLimitedBackend) Close() error {
	return b.next.Close()
}
