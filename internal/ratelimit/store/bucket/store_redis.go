package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reconcile/internal/ratelimit/models"
	"reconcile/pkg/requestcontext"
)

// RedisBucketStore counts requests in fixed windows shared by every instance.
// Each key is INCRBY'd and given the window as TTL when it has none; the TTL
// left on the key is the time until reset.
type RedisBucketStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing client. Keys are written under prefix.
func NewRedis(client redis.UniversalClient, prefix string) *RedisBucketStore {
	return &RedisBucketStore{client: client, prefix: prefix}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	return s.AllowN(ctx, key, 1, limit, window)
}

// AllowN records cost against the current window. A rejected request still
// counts, so a client hammering past the limit does not gain headroom.
func (s *RedisBucketStore) AllowN(ctx context.Context, key string, cost int, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)
	fullKey := s.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, fullKey, int64(cost))
		ttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit %s: %w", key, err)
	}

	remainingTTL := ttl.Val()
	if remainingTTL <= 0 {
		if err := s.client.PExpire(ctx, fullKey, window).Err(); err != nil {
			return nil, fmt.Errorf("redis rate limit expiry %s: %w", key, err)
		}
		remainingTTL = window
	}
	resetAt := now.Add(remainingTTL)
	count := int(incr.Val())

	if count > limit {
		return models.Denied(limit, resetAt, now), nil
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the rate limit counter for a key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
