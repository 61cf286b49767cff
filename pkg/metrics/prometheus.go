// Package metrics provides Prometheus metrics for the yapmint issuance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Score retrieval pipeline
	fetchAttempts  *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	fetchExhausted prometheus.Counter
	fetchDuration  prometheus.Histogram

	// Issuance lifecycle
	issuancesSubmitted prometheus.Counter
	issuancesSettled   prometheus.Counter
	issuancesRejected  prometheus.Counter
	issuancesBlocked   prometheus.Counter
	issuanceInFlight   prometheus.Gauge

	// Ledger RPC boundary
	ledgerRPCDuration *prometheus.HistogramVec
	ledgerRPCErrors   *prometheus.CounterVec

	// Eligibility countdown
	countdownsActive prometheus.Gauge

	// Settlement audit queue
	auditQueueSize     prometheus.Gauge
	auditQueueCapacity prometheus.Gauge
	auditRecords       prometheus.Counter
	auditDropped       prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Custom registry so the exposition endpoint serves only our collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "yapmint",
		subsystem:        "issuance",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	factory := promauto.With(m.registry)

	m.fetchAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_fetch_attempts_total",
		Help:      "Score fetch attempts per transport.",
	}, []string{"transport"})

	m.fetchFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_fetch_failures_total",
		Help:      "Score fetch failures per transport and reason.",
	}, []string{"transport", "reason"})

	m.fetchExhausted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_fetch_exhausted_total",
		Help:      "Fetches that exhausted every transport.",
	})

	m.fetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_fetch_duration_ms",
		Help:      "End-to-end score fetch duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.issuancesSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submitted_total",
		Help:      "Issuance requests submitted to the ledger.",
	})

	m.issuancesSettled = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settled_total",
		Help:      "Issuances settled by the ledger.",
	})

	m.issuancesRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rejected_total",
		Help:      "Issuances rejected by the ledger.",
	})

	m.issuancesBlocked = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blocked_total",
		Help:      "Issuance attempts blocked by the cooldown gate.",
	})

	m.issuanceInFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "in_flight",
		Help:      "Issuance submissions currently in flight.",
	})

	m.ledgerRPCDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_rpc_duration_ms",
		Help:      "Ledger RPC duration in milliseconds per method.",
		Buckets:   m.histogramBuckets,
	}, []string{"method"})

	m.ledgerRPCErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_rpc_errors_total",
		Help:      "Ledger RPC errors per method.",
	}, []string{"method"})

	m.countdownsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "countdowns_active",
		Help:      "Cooldown countdowns currently ticking.",
	})

	m.auditQueueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_queue_size",
		Help:      "Settlement records waiting in the audit queue.",
	})

	m.auditQueueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_queue_capacity",
		Help:      "Capacity of the settlement audit queue.",
	})

	m.auditRecords = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_records_total",
		Help:      "Settlement records written to the audit trail.",
	})

	m.auditDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "audit_dropped_total",
		Help:      "Settlement records dropped due to audit backpressure.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests per endpoint, method, and status.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// GetRegistry returns the registry backing the exposition endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers recording against the global manager.

func RecordFetchAttempt(transport string) {
	globalManager.fetchAttempts.WithLabelValues(transport).Inc()
}

func RecordFetchFailure(transport, reason string) {
	globalManager.fetchFailures.WithLabelValues(transport, reason).Inc()
}

func RecordFetchExhausted() {
	globalManager.fetchExhausted.Inc()
}

func RecordFetchDuration(ms float64) {
	globalManager.fetchDuration.Observe(ms)
}

func RecordIssuanceSubmitted() {
	globalManager.issuancesSubmitted.Inc()
}

func RecordIssuanceSettled() {
	globalManager.issuancesSettled.Inc()
}

func RecordIssuanceRejected() {
	globalManager.issuancesRejected.Inc()
}

func RecordIssuanceBlocked() {
	globalManager.issuancesBlocked.Inc()
}

func UpdateIssuanceInFlight(delta float64) {
	globalManager.issuanceInFlight.Add(delta)
}

func RecordLedgerRPCDuration(method string, ms float64) {
	globalManager.ledgerRPCDuration.WithLabelValues(method).Observe(ms)
}

func RecordLedgerRPCError(method string) {
	globalManager.ledgerRPCErrors.WithLabelValues(method).Inc()
}

func UpdateCountdownsActive(delta float64) {
	globalManager.countdownsActive.Add(delta)
}

func UpdateAuditQueueSize(n int) {
	globalManager.auditQueueSize.Set(float64(n))
}

func UpdateAuditQueueCapacity(n int) {
	globalManager.auditQueueCapacity.Set(float64(n))
}

func RecordAuditRecord() {
	globalManager.auditRecords.Inc()
}

func RecordAuditDropped() {
	globalManager.auditDropped.Inc()
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
