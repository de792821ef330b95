package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconcile/pkg/requestcontext"
)

func newRedisStore(t *testing.T) (*RedisBucketStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:"), mr
}

func TestRedisBucketStore_AllowUpToLimit(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := requestcontext.WithTime(context.Background(), epoch)

	for i := range 3 {
		result, err := store.Allow(ctx, "rl:ip:identify:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 2-i, result.Remaining)
		assert.Equal(t, epoch.Add(time.Minute), result.ResetAt)
	}

	result, err := store.Allow(ctx, "rl:ip:identify:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 60, result.RetryAfter)

	assert.True(t, mr.Exists("test:rl:ip:identify:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("test:rl:ip:identify:10.0.0.1"))
}

func TestRedisBucketStore_WindowExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	for range 2 {
		_, err := store.Allow(ctx, "expiring", 2, time.Second)
		require.NoError(t, err)
	}
	denied, err := store.Allow(ctx, "expiring", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)

	mr.FastForward(2 * time.Second)

	result, err := store.Allow(ctx, "expiring", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestRedisBucketStore_KeysAreIndependent(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	result, err := store.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisBucketStore_Reset(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	_, err := store.Allow(ctx, "reset", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx, "reset"))
	assert.False(t, mr.Exists("test:reset"))
}

func TestRedisBucketStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Allow(context.Background(), "down", 1, time.Minute)
	assert.Error(t, err)
}
