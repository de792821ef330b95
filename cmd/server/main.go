package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	contacthandler "reconcile/internal/contact/handler"
	contactmetrics "reconcile/internal/contact/metrics"
	contactservice "reconcile/internal/contact/service"
	"reconcile/internal/platform/config"
	"reconcile/internal/platform/httpserver"
	"reconcile/internal/platform/logger"
	"reconcile/internal/platform/metrics"
	httptransport "reconcile/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	contacts, err := buildContactStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer contacts.close()

	limits, err := buildRateLimit(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer limits.close()

	svc, err := contactservice.New(contacts.store, contacts.tx,
		contactservice.WithLogger(log),
		contactservice.WithMetrics(contactmetrics.New(reg)),
		contactservice.WithLockAttempts(cfg.Contact.LockAttempts),
	)
	if err != nil {
		return err
	}

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	deps := httptransport.Dependencies{
		Logger:             log,
		Contacts:           contacthandler.New(svc, log),
		RateLimit:          limits.middleware,
		HTTPMetrics:        metrics.New(reg),
		Readiness:          append(contacts.readiness, limits.readiness...),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     cfg.RequestTimeout,
	}
	if cfg.MetricsAddr == "" {
		deps.MetricsHandler = metricsHandler
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps), cfg.RequestTimeout)
	servers := []*http.Server{srv}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, httpserver.New(cfg.MetricsAddr, mux, 10*time.Second))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			log.Info("listening", "addr", s.Addr, "store", contacts.kind)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	if limits.sweep != nil {
		g.Go(func() error {
			limits.sweep(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
