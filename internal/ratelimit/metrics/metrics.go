package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision labels for rate limit checks.
const (
	DecisionAllowed = "allowed"
	DecisionLimited = "limited"
	DecisionError   = "error"
)

type Metrics struct {
	ChecksTotal      *prometheus.CounterVec
	FallbackChecks   prometheus.Counter
	BreakerOpen      prometheus.Gauge
	BreakerOpenTotal prometheus.Counter
}

// New registers the rate limit metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_ratelimit_checks_total",
			Help: "Rate limit checks by route class and decision",
		}, []string{"class", "decision"}),
		FallbackChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_ratelimit_fallback_checks_total",
			Help: "Checks served by the in-memory fallback while the primary store is unhealthy",
		}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "reconcile_ratelimit_breaker_open",
			Help: "1 while the rate limit store circuit breaker is open",
		}),
		BreakerOpenTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_ratelimit_breaker_opened_total",
			Help: "Times the rate limit store circuit breaker opened",
		}),
	}
}

func (m *Metrics) ObserveCheck(class, decision string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(class, decision).Inc()
}

func (m *Metrics) IncrementFallback() {
	if m == nil {
		return
	}
	m.FallbackChecks.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		m.BreakerOpenTotal.Inc()
		return
	}
	m.BreakerOpen.Set(0)
}
