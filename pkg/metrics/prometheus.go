// Package metrics provides Prometheus metrics for the Box skill service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the skill.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Invocation metrics
	invocations     *prometheus.CounterVec
	stageLatency    *prometheus.HistogramVec
	cardsProduced   *prometheus.CounterVec
	extractedItems  *prometheus.CounterVec
	softFailures    *prometheus.CounterVec
	metadataWrites  *prometheus.CounterVec
	downloadedBytes prometheus.Counter

	// Remote calls
	remoteCalls       *prometheus.CounterVec
	remoteCallLatency *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "boxskill",
		subsystem:        "nlu",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.invocations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "invocations_total",
		Help:        "Total number of skill invocations by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_latency_milliseconds",
		Help:        "Latency of each invocation stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"stage"})

	m.cardsProduced = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cards_total",
		Help:        "Total number of skill cards produced by title",
		ConstLabels: labels,
	}, []string{"title"})

	m.extractedItems = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "extracted_items_total",
		Help:        "Total number of concepts and keywords returned by NLU",
		ConstLabels: labels,
	}, []string{"kind"})

	m.softFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "soft_failures_total",
		Help:        "Failures that were logged and swallowed, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.metadataWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "metadata_writes_total",
		Help:        "Metadata upserts by outcome (created, updated, failed)",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.downloadedBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "downloaded_bytes_total",
		Help:        "Bytes downloaded from storage",
		ConstLabels: labels,
	})

	m.remoteCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "remote_calls_total",
		Help:        "Calls to remote services by service, operation and result",
		ConstLabels: labels,
	}, []string{"service", "operation", "result"})

	m.remoteCallLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "remote_call_latency_milliseconds",
		Help:        "Latency of remote service calls in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"service", "operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordInvocation counts a finished invocation. Outcome is "success" or "error".
func (m *Manager) RecordInvocation(outcome string) {
	if m.enabled {
		m.invocations.WithLabelValues(outcome).Inc()
	}
}

// RecordStageLatency observes the duration of a single invocation stage.
func (m *Manager) RecordStageLatency(stage string, latencyMs float64) {
	if m.enabled {
		m.stageLatency.WithLabelValues(stage).Observe(latencyMs)
	}
}

// RecordCard counts a produced card.
func (m *Manager) RecordCard(title string) {
	if m.enabled {
		m.cardsProduced.WithLabelValues(title).Inc()
	}
}

// RecordExtracted adds n items of the given kind ("concepts", "keywords").
func (m *Manager) RecordExtracted(kind string, n int) {
	if m.enabled && n > 0 {
		m.extractedItems.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordSoftFailure counts a swallowed failure.
func (m *Manager) RecordSoftFailure(reason string) {
	if m.enabled {
		m.softFailures.WithLabelValues(reason).Inc()
	}
}

// RecordMetadataWrite counts a metadata upsert outcome.
func (m *Manager) RecordMetadataWrite(outcome string) {
	if m.enabled {
		m.metadataWrites.WithLabelValues(outcome).Inc()
	}
}

// RecordDownloadedBytes adds n to the downloaded bytes counter.
func (m *Manager) RecordDownloadedBytes(n int64) {
	if m.enabled && n > 0 {
		m.downloadedBytes.Add(float64(n))
	}
}

// RecordRemoteCall counts one remote call and observes its latency.
func (m *Manager) RecordRemoteCall(service, operation, result string, latencyMs float64) {
	if m.enabled {
		m.remoteCalls.WithLabelValues(service, operation, result).Inc()
		m.remoteCallLatency.WithLabelValues(service, operation).Observe(latencyMs)
	}
}

// RecordHTTPRequest counts one HTTP request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordInvocation increments the global invocations counter.
func RecordInvocation(outcome string) { globalManager.RecordInvocation(outcome) }

// RecordStageLatency records stage latency on the global manager.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.RecordStageLatency(stage, latencyMs)
}

// RecordCard counts a produced card on the global manager.
func RecordCard(title string) { globalManager.RecordCard(title) }

// RecordExtracted counts extracted items on the global manager.
func RecordExtracted(kind string, n int) { globalManager.RecordExtracted(kind, n) }

// RecordSoftFailure counts a swallowed failure on the global manager.
func RecordSoftFailure(reason string) { globalManager.RecordSoftFailure(reason) }

// RecordMetadataWrite counts a metadata upsert outcome on the global manager.
func RecordMetadataWrite(outcome string) { globalManager.RecordMetadataWrite(outcome) }

// RecordDownloadedBytes counts downloaded bytes on the global manager.
func RecordDownloadedBytes(n int64) { globalManager.RecordDownloadedBytes(n) }

// RecordRemoteCall records a remote call on the global manager.
func RecordRemoteCall(service, operation, result string, latencyMs float64) {
	globalManager.RecordRemoteCall(service, operation, result, latencyMs)
}

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
