package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reconcile/internal/contact/service"
	"reconcile/internal/contact/store"
	"reconcile/internal/platform/config"
	"reconcile/internal/platform/logger"
	"reconcile/internal/platform/postgres"
)

// ErrNoDatabase is returned by commands that only make sense against PostgreSQL.
var ErrNoDatabase = errors.New("DATABASE_URL is required")

// Backend is the contact service plus its lifecycle hooks.
type Backend struct {
	Service *service.Service
	// Migrate applies the schema. Nil for the in-memory store.
	Migrate func(ctx context.Context) error
	Close   func() error
}

// Opener builds a Backend for one command invocation.
type Opener func(ctx context.Context) (*Backend, error)

// OpenBackend reads the environment and opens the configured store.
func OpenBackend(ctx context.Context) (*Backend, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	return openWithConfig(ctx, cfg, log)
}

func openWithConfig(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	if !cfg.UsesPostgres() {
		return NewMemoryBackend(log)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	st := store.NewPostgres(db)
	svc, err := service.New(st, store.NewPostgresContactTx(st, cfg.Contact.TxTimeout),
		service.WithLogger(log),
		service.WithLockAttempts(cfg.Contact.LockAttempts),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build contact service: %w", err)
	}
	return &Backend{
		Service: svc,
		Migrate: func(ctx context.Context) error { return store.Migrate(ctx, db) },
		Close:   db.Close,
	}, nil
}

// NewMemoryBackend returns a backend over a fresh in-memory store.
func NewMemoryBackend(log *slog.Logger) (*Backend, error) {
	st := store.NewInMemory()
	svc, err := service.New(st, service.NewShardedContactTx(st, 0), service.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &Backend{
		Service: svc,
		Close:   func() error { return nil },
	}, nil
}

func withBackend(ctx context.Context, open Opener, fn func(b *Backend) error) error {
	b, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()
	return fn(b)
}
