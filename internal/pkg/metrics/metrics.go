package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the service collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	assetOps      *prometheus.CounterVec
	loanOps       *prometheus.CounterVec
	overdueLoans  prometheus.Gauge
	mismatches    prometheus.Gauge
	jobDuration   *prometheus.HistogramVec
	jobLastRunSec *prometheus.GaugeVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assetOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoolhub",
			Name:      "asset_operations_total",
			Help:      "Asset lifecycle operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		loanOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schoolhub",
			Name:      "loan_operations_total",
			Help:      "Book loan operations by type and outcome.",
		}, []string{"operation", "outcome"}),
		overdueLoans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "library_overdue_loans",
			Help:      "Processing loans past their return date at the last scan.",
		}),
		mismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "asset_consistency_mismatches",
			Help:      "Assets whose row disagrees with their history at the last audit.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schoolhub",
			Name:      "cron_job_duration_seconds",
			Help:      "Duration of scheduled jobs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobLastRunSec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "schoolhub",
			Name:      "cron_job_last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run of a scheduled job.",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assetOps,
		m.loanOps,
		m.overdueLoans,
		m.mismatches,
		m.jobDuration,
		m.jobLastRunSec,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AssetOperation counts one asset lifecycle operation
func (m *Metrics) AssetOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.assetOps.WithLabelValues(operation, outcome).Inc()
}

// LoanOperation counts one loan operation
func (m *Metrics) LoanOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.loanOps.WithLabelValues(operation, outcome).Inc()
}

// SetOverdueLoans records the result of an overdue scan
func (m *Metrics) SetOverdueLoans(n int) {
	if m == nil {
		return
	}
	m.overdueLoans.Set(float64(n))
}

// SetConsistencyMismatches records the result of a consistency audit
func (m *Metrics) SetConsistencyMismatches(n int) {
	if m == nil {
		return
	}
	m.mismatches.Set(float64(n))
}

// JobFinished records a scheduled job run
func (m *Metrics) JobFinished(job string, started time.Time) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	m.jobLastRunSec.WithLabelValues(job).SetToCurrentTime()
}
