package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for identify requests.
const (
	OutcomeCreated = "created"
	OutcomeLinked  = "linked"
	OutcomeMerged  = "merged"
	OutcomeMatched = "matched"
)

// Metrics provides observability for the contact module.
// Tracks identify outcomes, merges, lock retries and consistency faults.
type Metrics struct {
	IdentifyTotal         *prometheus.CounterVec
	ContactsDemoted       prometheus.Counter
	LockRetries           prometheus.Counter
	ConsistencyViolations prometheus.Counter
	IdentifyDuration      prometheus.Histogram
	ViewDuration          prometheus.Histogram
}

// New registers the contact metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		IdentifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_identify_total",
			Help: "Identify requests by outcome",
		}, []string{"outcome"}),
		ContactsDemoted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_contacts_demoted_total",
			Help: "Primaries demoted or secondaries relinked during cluster merges",
		}),
		LockRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_cluster_lock_retries_total",
			Help: "Locked units re-entered because the cluster key set widened",
		}),
		ConsistencyViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_consistency_violations_total",
			Help: "Stored contact graphs found violating link invariants",
		}),
		IdentifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_identify_duration_seconds",
			Help:    "Duration of Identify operations including lock wait",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ViewDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_view_duration_seconds",
			Help:    "Duration of consolidated view lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementIdentify(outcome string) {
	if m == nil {
		return
	}
	m.IdentifyTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddDemoted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ContactsDemoted.Add(float64(n))
}

func (m *Metrics) IncrementLockRetry() {
	if m == nil {
		return
	}
	m.LockRetries.Inc()
}

func (m *Metrics) IncrementConsistencyViolation() {
	if m == nil {
		return
	}
	m.ConsistencyViolations.Inc()
}

// ObserveIdentify records the duration of an Identify call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveIdentify(start time.Time) {
	if m == nil {
		return
	}
	m.IdentifyDuration.Observe(time.Since(start).Seconds())
}

// ObserveView records the duration of a View call.
func (m *Metrics) ObserveView(start time.Time) {
	if m == nil {
		return
	}
	m.ViewDuration.Observe(time.Since(start).Seconds())
}
