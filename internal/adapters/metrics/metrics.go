package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics.
// A nil *Metrics is valid and records nothing, so adapters can be built without one in tests.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	QueryDuration   *prometheus.HistogramVec
	EmailsSent      *prometheus.CounterVec
	EmailFailures   *prometheus.CounterVec
	GateDecisions   *prometheus.CounterVec
	ArchiveEntries  prometheus.Counter
	ArchiveSkipped  prometheus.Counter
}

// New creates a registry with process/Go collectors and the sponsor engine metrics.
// PRE: none
// POST: Returns metrics registered on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sponsors_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sponsors_db_query_duration_seconds",
			Help:    "Database call latency by operation.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sponsors_emails_sent_total",
			Help: "Sponsor emails accepted by the mail transport.",
		}, []string{"provider"}),
		EmailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sponsors_email_failures_total",
			Help: "Sponsor emails the mail transport rejected.",
		}, []string{"provider"}),
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sponsors_email_gate_decisions_total",
			Help: "Confirmation gate outcomes by state.",
		}, []string{"state"}),
		ArchiveEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sponsors_archive_entries_total",
			Help: "Files written into benefit archives.",
		}),
		ArchiveSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sponsors_archive_missing_files_total",
			Help: "Referenced benefit files missing from storage at packaging time.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestDuration,
		m.QueryDuration,
		m.EmailsSent,
		m.EmailFailures,
		m.GateDecisions,
		m.ArchiveEntries,
		m.ArchiveSkipped,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// ObserveQuery records one database call.
func (m *Metrics) ObserveQuery(op string, seconds float64) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(op).Observe(seconds)
}

// RecordDispatch adds the outcome of one mail batch.
func (m *Metrics) RecordDispatch(provider string, sent, failed int) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(provider).Add(float64(sent))
	m.EmailFailures.WithLabelValues(provider).Add(float64(failed))
}

// RecordGate counts one confirmation gate decision.
func (m *Metrics) RecordGate(state string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(state).Inc()
}

// RecordArchive adds the outcome of one packaging run.
func (m *Metrics) RecordArchive(entries, skipped int) {
	if m == nil {
		return
	}
	m.ArchiveEntries.Add(float64(entries))
	m.ArchiveSkipped.Add(float64(skipped))
}
