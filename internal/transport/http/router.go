package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	contacthandler "reconcile/internal/contact/handler"
	"reconcile/internal/platform/metrics"
	"reconcile/internal/platform/middleware"
	rlmw "reconcile/internal/ratelimit/middleware"
	"reconcile/pkg/platform/httputil"
	"reconcile/pkg/platform/middleware/metadata"
	"reconcile/pkg/platform/middleware/requesttime"
)

const banner = "Identity Reconciliation Engine is UP and RUNNING. Use the dashboard to interact."

// identifyRouteClass names the rate limit bucket for POST /identify.
const identifyRouteClass = "identify"

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies are the collaborators the router mounts.
type Dependencies struct {
	Logger         *slog.Logger
	Contacts       *contacthandler.Handler
	RateLimit      *rlmw.Middleware
	HTTPMetrics    *metrics.Metrics
	MetricsHandler http.Handler
	Readiness      []ReadinessCheck

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

// NewRouter wires middleware and all public endpoints. A nil MetricsHandler
// leaves /metrics unmounted (served on a separate listener).
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(deps.HTTPMetrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(banner))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(deps.Readiness, logger))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	if deps.Contacts != nil {
		r.Group(func(r chi.Router) {
			if deps.RequestTimeout > 0 {
				r.Use(middleware.Timeout(deps.RequestTimeout))
			}
			identifyMiddleware := []func(http.Handler) http.Handler{middleware.ContentTypeJSON}
			if deps.RateLimit != nil {
				identifyMiddleware = append([]func(http.Handler) http.Handler{deps.RateLimit.RateLimit(identifyRouteClass)}, identifyMiddleware...)
			}
			deps.Contacts.Register(r, identifyMiddleware...)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
			Error:            "not_found",
			ErrorDescription: "route not found",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:            "method_not_allowed",
			ErrorDescription: "method not allowed",
		})
	})
	return r
}

func readyHandler(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		ready := true
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", c.Name, "error", err)
				status[c.Name] = "unavailable"
				ready = false
				continue
			}
			status[c.Name] = "ok"
		}

		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]any{"ready": ready, "checks": status})
	}
}
