package service

import (
	"context"
	"slices"
	"sync"
	"time"

	dErrors "reconcile/pkg/domain-errors"
)

// numContactShards bounds the number of mutexes guarding in-memory clusters.
// Keys are spread across shards by FNV-1a, so unrelated clusters rarely contend.
const numContactShards = 128

// DefaultContactTxTimeout is applied when the caller's context has no deadline.
const DefaultContactTxTimeout = 5 * time.Second

// ShardedContactTx serializes locked units over an in-memory store.
// Shards are acquired in ascending order so overlapping key sets cannot deadlock.
// There is no rollback: an error inside fn leaves earlier writes in place.
type ShardedContactTx struct {
	shards  [numContactShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedContactTx wraps store. A zero timeout uses DefaultContactTxTimeout.
func NewShardedContactTx(store Store, timeout time.Duration) *ShardedContactTx {
	return &ShardedContactTx{store: store, timeout: timeout}
}

func (t *ShardedContactTx) RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = DefaultContactTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shards := t.selectShards(keys)
	for _, shard := range shards {
		t.shards[shard].Lock()
	}
	defer func() {
		for i := len(shards) - 1; i >= 0; i-- {
			t.shards[shards[i]].Unlock()
		}
	}()

	// Check again after acquiring locks
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// selectShards maps keys to distinct shard indexes in ascending order.
func (t *ShardedContactTx) selectShards(keys []string) []int {
	shards := make([]int, 0, len(keys))
	for _, key := range keys {
		shards = append(shards, int(HashKey(key)%numContactShards))
	}
	slices.Sort(shards)
	return slices.Compact(shards)
}

// HashKey is 32-bit FNV-1a.
func HashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
