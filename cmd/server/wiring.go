package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	contactservice "reconcile/internal/contact/service"
	contactstore "reconcile/internal/contact/store"
	"reconcile/internal/platform/config"
	"reconcile/internal/platform/postgres"
	"reconcile/internal/platform/redis"
	ratelimitmetrics "reconcile/internal/ratelimit/metrics"
	rlmw "reconcile/internal/ratelimit/middleware"
	"reconcile/internal/ratelimit/models"
	"reconcile/internal/ratelimit/store/bucket"
	httptransport "reconcile/internal/transport/http"
	"reconcile/pkg/platform/circuit"
)

const bucketSweepInterval = time.Minute

type contactBackend struct {
	kind      string
	store     contactservice.Store
	tx        contactservice.ContactStoreTx
	readiness []httptransport.ReadinessCheck
	close     func()
}

// buildContactStore selects PostgreSQL when DATABASE_URL is set and the
// in-memory store otherwise.
func buildContactStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*contactBackend, error) {
	if !cfg.UsesPostgres() {
		log.Warn("DATABASE_URL not set, contacts are kept in memory and lost on restart")
		st := contactstore.NewInMemory()
		return &contactBackend{
			kind:  "memory",
			store: st,
			tx:    contactservice.NewShardedContactTx(st, cfg.Contact.TxTimeout),
			close: func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := contactstore.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate contacts schema: %w", err)
		}
		log.Info("contacts schema migrated")
	}

	st := contactstore.NewPostgres(db)
	return &contactBackend{
		kind:  "postgres",
		store: st,
		tx:    contactstore.NewPostgresContactTx(st, cfg.Contact.TxTimeout),
		readiness: []httptransport.ReadinessCheck{
			{Name: "postgres", Check: st.Ping},
		},
		close: func() { closeDB(db, log) },
	}, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("failed to close database", "error", err)
	}
}

type rateLimitBackend struct {
	middleware *rlmw.Middleware
	readiness  []httptransport.ReadinessCheck
	sweep      func(ctx context.Context)
	close      func()
}

// buildRateLimit uses Redis counters when REDIS_URL is set, falling back to
// the in-memory buckets while Redis is unhealthy. Without Redis the in-memory
// buckets are the only store.
func buildRateLimit(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*rateLimitBackend, error) {
	m := ratelimitmetrics.New(reg)
	limit := models.Limit{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	memory := bucket.NewInMemory()
	backend := &rateLimitBackend{
		sweep: func(ctx context.Context) { sweepBuckets(ctx, memory, log) },
		close: func() {},
	}

	var limiter *rlmw.Limiter
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client != nil {
		limiter = rlmw.NewLimiter(bucket.NewRedis(client.Client, "reconcile:"), limit,
			rlmw.WithFallback(memory),
			rlmw.WithBreaker(circuit.New("redis-ratelimit")),
			rlmw.WithLimiterLogger(log),
			rlmw.WithLimiterMetrics(m),
		)
		backend.readiness = append(backend.readiness, httptransport.ReadinessCheck{Name: "redis", Check: client.Health})
		backend.close = func() { _ = client.Close() }
	} else {
		limiter = rlmw.NewLimiter(memory, limit, rlmw.WithLimiterLogger(log), rlmw.WithLimiterMetrics(m))
	}

	backend.middleware = rlmw.New(limiter, log,
		rlmw.WithDisabled(!cfg.RateLimit.Enabled),
		rlmw.WithMetrics(m),
	)
	return backend, nil
}

func sweepBuckets(ctx context.Context, store *bucket.InMemoryBucketStore, log *slog.Logger) {
	ticker := time.NewTicker(bucketSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				log.Debug("swept idle rate limit buckets", "count", n)
			}
		}
	}
}
