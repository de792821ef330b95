package httptransport_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contacthandler "reconcile/internal/contact/handler"
	"reconcile/internal/contact/service"
	"reconcile/internal/contact/store"
	"reconcile/internal/platform/metrics"
	rlmw "reconcile/internal/ratelimit/middleware"
	"reconcile/internal/ratelimit/models"
	"reconcile/internal/ratelimit/store/bucket"
	httptransport "reconcile/internal/transport/http"
	"reconcile/pkg/testutil"
)

type routerOptions struct {
	limit     int
	readiness []httptransport.ReadinessCheck
}

func newTestRouter(t *testing.T, opts routerOptions) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewInMemory()
	svc, err := service.New(st, service.NewShardedContactTx(st, 0), service.WithLogger(logger))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	deps := httptransport.Dependencies{
		Logger:             logger,
		Contacts:           contacthandler.New(svc, logger),
		HTTPMetrics:        metrics.New(reg),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Readiness:          opts.readiness,
		CORSAllowedOrigins: []string{"*"},
		RequestTimeout:     5 * time.Second,
	}
	if opts.limit > 0 {
		limiter := rlmw.NewLimiter(bucket.NewInMemory(), models.Limit{Requests: opts.limit, Window: time.Minute})
		deps.RateLimit = rlmw.New(limiter, logger)
	}
	return httptransport.NewRouter(deps)
}

func TestRouter_Banner(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/", ""))

	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, "Identity Reconciliation Engine is UP and RUNNING. Use the dashboard to interact.", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/healthz", ""))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONBody(t, rr, `{"status":"ok"}`)
}

func TestRouter_Readiness(t *testing.T) {
	t.Run("all dependencies ready", func(t *testing.T) {
		router := newTestRouter(t, routerOptions{readiness: []httptransport.ReadinessCheck{
			{Name: "store", Check: func(context.Context) error { return nil }},
		}})

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/readyz", ""))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONBody(t, rr, `{"ready":true,"checks":{"store":"ok"}}`)
	})

	t.Run("a failing dependency", func(t *testing.T) {
		router := newTestRouter(t, routerOptions{readiness: []httptransport.ReadinessCheck{
			{Name: "store", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		}})

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/readyz", ""))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		testutil.AssertJSONBody(t, rr, `{"ready":false,"checks":{"store":"ok","redis":"unavailable"}}`)
	})
}

func TestRouter_Identify(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify",
		`{"email":"doc@hillvalley.edu","phoneNumber":"1955"}`))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/contacts/1", ""))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONBody(t, rr, `{"contact":{
		"primaryContatctId":1,
		"emails":["doc@hillvalley.edu"],
		"phoneNumbers":["1955"],
		"secondaryContactIds":[]}}`)
}

func TestRouter_IdentifyRejectsNonJSON(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/identify", `email=doc@hillvalley.edu`)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusUnsupportedMediaType, "unsupported_media_type")
}

func TestRouter_IdentifyRateLimited(t *testing.T) {
	router := newTestRouter(t, routerOptions{limit: 2})

	for range 2 {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", `{"phoneNumber":"88"}`))
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/identify", `{"phoneNumber":"88"}`))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are not limited
	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/contacts/1", ""))
	testutil.AssertStatusOK(t, rr)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, routerOptions{})
	testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/healthz", ""))

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/metrics", ""))

	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), `route="/healthz"`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodGet, "/nope", ""))

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := testutil.NewRequestWithBody(t, http.MethodOptions, "/identify", "")
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
