package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus collectors of the distribution engine.
// All methods are nil-safe so wiring stays optional in tools and tests.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	ordersCompleted prometheus.Counter
	syncChecks      *prometheus.CounterVec
	syncDrift       prometheus.Gauge
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the engine's collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	ordersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gasnusa_orders_completed_total",
		Help: "Orders that reached SELESAI and emitted ledger entries.",
	})
	syncChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gasnusa_sync_checks_total",
		Help: "Reconciliation checks partitioned by result.",
	}, []string{"result"})
	syncDrift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gasnusa_sync_drift_units",
		Help: "Widest gap between the four quantity totals at the last check.",
	})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gasnusa_jobs_total",
		Help: "Background job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gasnusa_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	registry.MustRegister(ordersCompleted, syncChecks, syncDrift, jobRuns, jobDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ordersCompleted: ordersCompleted,
		syncChecks:      syncChecks,
		syncDrift:       syncDrift,
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// OrderCompleted records one successful completion.
func (m *Metrics) OrderCompleted() {
	if m == nil {
		return
	}
	m.ordersCompleted.Inc()
}

// SyncChecked records the outcome of one reconciliation check.
func (m *Metrics) SyncChecked(inSync bool, drift int64) {
	if m == nil {
		return
	}
	result := "in_sync"
	if !inSync {
		result = "drift"
	}
	m.syncChecks.WithLabelValues(result).Inc()
	m.syncDrift.Set(float64(drift))
}

// Tracker instruments a single background job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records duration and status and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.jobRuns.WithLabelValues(t.job, status).Inc()
	t.metrics.jobDuration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}
