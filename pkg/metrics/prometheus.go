// Package metrics provides Prometheus metrics for the SMS relay service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the relay.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Detection
	eventsDetected  *prometheus.CounterVec
	detectorErrors  *prometheus.CounterVec
	pushRejected    prometheus.Counter
	watermarkUnixMs *prometheus.GaugeVec

	// Admission
	eventsAdmitted  *prometheus.CounterVec
	eventsDuplicate *prometheus.CounterVec
	pendingSize     prometheus.Gauge
	processedSize   prometheus.Gauge

	// Dispatch
	dispatchTotal   *prometheus.CounterVec
	dispatchLatency prometheus.Histogram
	dispatcherState prometheus.Gauge

	// Retention
	sweepRuns    prometheus.Counter
	sweepRemoved prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "smsrelay",
		subsystem:        "relay",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsDetected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_detected_total",
		Help:      "Events emitted by detectors before deduplication",
	}, []string{"source"})

	m.detectorErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detector_errors_total",
		Help:      "Detector store query failures",
	}, []string{"source"})

	m.pushRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "push_rejected_total",
		Help:      "Push payloads discarded as malformed",
	})

	m.watermarkUnixMs = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detector_watermark_unix_milliseconds",
		Help:      "Occurrence timestamp of the most recent event emitted by a detector",
	}, []string{"source"})

	m.eventsAdmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_admitted_total",
		Help:      "Events admitted into the pending queue",
	}, []string{"source"})

	m.eventsDuplicate = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Events rejected as duplicates at admission",
	}, []string{"source", "reason"})

	m.pendingSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pending_size",
		Help:      "Events waiting for dispatch",
	})

	m.processedSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "processed_size",
		Help:      "Fingerprints held in the processed record",
	})

	m.dispatchTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_total",
		Help:      "Sink delivery attempts by outcome",
	}, []string{"sink", "outcome"})

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "Sink delivery latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.dispatcherState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatcher_processing",
		Help:      "1 while an event is in flight to the sink, 0 when idle",
	})

	m.sweepRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_runs_total",
		Help:      "Retention sweep passes",
	})

	m.sweepRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_removed_total",
		Help:      "Fingerprints removed by the retention sweep",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Detection.

// RecordEventDetected counts an event emitted by a detector.
func RecordEventDetected(source string) {
	globalManager.eventsDetected.WithLabelValues(source).Inc()
}

// RecordDetectorError counts a failed store query.
func RecordDetectorError(source string) {
	globalManager.detectorErrors.WithLabelValues(source).Inc()
}

// RecordPushRejected counts a malformed push payload.
func RecordPushRejected() {
	globalManager.pushRejected.Inc()
}

// UpdateWatermark publishes a detector's watermark.
func UpdateWatermark(source string, unixMs int64) {
	globalManager.watermarkUnixMs.WithLabelValues(source).Set(float64(unixMs))
}

// Admission.

// RecordEventAdmitted counts an admitted event.
func RecordEventAdmitted(source string) {
	globalManager.eventsAdmitted.WithLabelValues(source).Inc()
}

// RecordEventDuplicate counts a rejected duplicate; reason is "processed" or "pending".
func RecordEventDuplicate(source, reason string) {
	globalManager.eventsDuplicate.WithLabelValues(source, reason).Inc()
}

// UpdatePendingSize sets the pending gauge.
func UpdatePendingSize(size int) {
	globalManager.pendingSize.Set(float64(size))
}

// UpdateProcessedSize sets the processed record gauge.
func UpdateProcessedSize(size int) {
	globalManager.processedSize.Set(float64(size))
}

// Dispatch.

// RecordDispatch counts a delivery attempt; outcome is "success" or "failure".
func RecordDispatch(sink, outcome string) {
	globalManager.dispatchTotal.WithLabelValues(sink, outcome).Inc()
}

// RecordDispatchLatency records sink latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// UpdateDispatcherProcessing flips the dispatcher state gauge.
func UpdateDispatcherProcessing(processing bool) {
	if processing {
		globalManager.dispatcherState.Set(1)
		return
	}
	globalManager.dispatcherState.Set(0)
}

// Retention.

// RecordSweep counts a sweep pass and the fingerprints it removed.
func RecordSweep(removed int) {
	globalManager.sweepRuns.Inc()
	globalManager.sweepRemoved.Add(float64(removed))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
