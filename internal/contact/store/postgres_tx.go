package store

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"reconcile/internal/contact/service"
	dErrors "reconcile/pkg/domain-errors"
	"reconcile/pkg/platform/sentinel"
	txcontext "reconcile/pkg/platform/tx"
)

var (
	_ service.Store          = (*InMemoryStore)(nil)
	_ service.Store          = (*PostgresStore)(nil)
	_ service.ContactStoreTx = (*PostgresContactTx)(nil)
)

// PostgresContactTx runs locked units in a READ COMMITTED transaction that
// first takes a transaction-scoped advisory lock per key. Locks are taken in
// ascending key order and released on commit or rollback.
type PostgresContactTx struct {
	store   *PostgresStore
	timeout time.Duration
}

// NewPostgresContactTx wraps store. A zero timeout uses service.DefaultContactTxTimeout.
func NewPostgresContactTx(store *PostgresStore, timeout time.Duration) *PostgresContactTx {
	return &PostgresContactTx{store: store, timeout: timeout}
}

func (t *PostgresContactTx) RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context, store service.Store) error) (err error) {
	lockIDs := advisoryKeys(keys)
	ctx, span := otel.Tracer("reconcile/contact/store").Start(ctx, "contact.RunInTx")
	span.SetAttributes(attribute.Int("contact.lock_count", len(lockIDs)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "locked unit failed")
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = service.DefaultContactTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.store.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return txError(err, "begin contact transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, key := range lockIDs {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return txError(err, "acquire cluster lock")
		}
	}

	if err := fn(txcontext.WithTx(ctx, tx), t.store); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return txError(err, "commit contact transaction")
	}
	return nil
}

// advisoryKeys hashes keys with FNV-1a-64 and returns the distinct lock ids
// in ascending order.
func advisoryKeys(keys []string) []int64 {
	out := make([]int64, 0, len(keys))
	for _, key := range keys {
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		out = append(out, int64(h.Sum64()))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func txError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	mapped := mapPgError(err)
	if errors.Is(mapped, sentinel.ErrConflict) {
		return dErrors.Wrap(mapped, dErrors.CodeConflict, msg)
	}
	return dErrors.Wrap(mapped, dErrors.CodeInternal, msg)
}
