package middleware

import (
	"context"
	"log/slog"
	"time"

	"reconcile/internal/ratelimit/metrics"
	"reconcile/internal/ratelimit/models"
	"reconcile/pkg/platform/circuit"
)

// BucketStore counts requests against a key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limiter applies one limit through a primary store. With a fallback
// configured, consecutive primary failures open a circuit breaker and checks
// are served from the fallback until the primary recovers.
type Limiter struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type LimiterOption func(*Limiter)

func WithFallback(store BucketStore) LimiterOption {
	return func(l *Limiter) {
		l.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) LimiterOption {
	return func(l *Limiter) {
		l.breaker = b
	}
}

func WithLimiterLogger(logger *slog.Logger) LimiterOption {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithLimiterMetrics(m *metrics.Metrics) LimiterOption {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// NewLimiter creates a Limiter enforcing limit through primary.
func NewLimiter(primary BucketStore, limit models.Limit, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		primary: primary,
		limit:   limit,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback != nil && l.breaker == nil {
		l.breaker = circuit.New("ratelimit-store")
	}
	return l
}

// Check counts one request against key. degraded reports that the result came
// from the fallback store.
func (l *Limiter) Check(ctx context.Context, key string) (result *models.RateLimitResult, degraded bool, err error) {
	result, err = l.primary.Allow(ctx, key, l.limit.Requests, l.limit.Window)
	if l.fallback == nil {
		return result, false, err
	}

	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		l.onStateChange(change, err)
		if !useFallback {
			return nil, false, err
		}
		return l.fromFallback(ctx, key)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	l.onStateChange(change, nil)
	if !usePrimary {
		return l.fromFallback(ctx, key)
	}
	return result, false, nil
}

func (l *Limiter) fromFallback(ctx context.Context, key string) (*models.RateLimitResult, bool, error) {
	l.metrics.IncrementFallback()
	result, err := l.fallback.Allow(ctx, key, l.limit.Requests, l.limit.Window)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func (l *Limiter) onStateChange(change circuit.StateChange, cause error) {
	switch {
	case change.Opened:
		l.logger.Warn("rate limit store unhealthy, using in-memory fallback",
			"breaker", l.breaker.Name(), "error", cause)
		l.metrics.SetBreakerOpen(true)
	case change.Closed:
		l.logger.Info("rate limit store recovered", "breaker", l.breaker.Name())
		l.metrics.SetBreakerOpen(false)
	}
}
