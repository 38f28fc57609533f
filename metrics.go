package flashlog

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Metrics tracks performance and operational statistics for a single
// Logger instance. Each Logger owns a private prometheus.Registry
// rather than registering against the global default registry, so
// multiple Logger instances (or repeated test runs) in one process
// never collide over metric names.
type Metrics struct {
	registry *prometheus.Registry

	batchesWritten  prometheus.Counter
	bytesWritten    prometheus.Counter
	writeErrors     prometheus.Counter
	writeLatency    prometheus.Histogram
	batchSize       prometheus.Histogram
	targetBatchSize prometheus.Gauge
	ingestQueueLen  prometheus.Gauge
	completionQLen  prometheus.Gauge
	signalsDropped  prometheus.Counter
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		batchesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashlog_batches_written_total",
			Help: "Total number of batches successfully written to the log file.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashlog_bytes_written_total",
			Help: "Total number of payload bytes written to the log file.",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashlog_write_errors_total",
			Help: "Total number of fatal write_all failures observed by the batcher.",
		}),
		writeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flashlog_write_latency_seconds",
			Help:    "Latency of a single batch write_all call.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flashlog_batch_size_bytes",
			Help:    "Size in bytes of each flushed batch.",
			Buckets: prometheus.ExponentialBuckets(4096, 2, 18),
		}),
		targetBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flashlog_target_batch_size_bytes",
			Help: "Current value of the adaptive sizer's target_batch_size.",
		}),
		ingestQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flashlog_ingest_queue_length",
			Help: "Number of submissions currently buffered in the ingest queue.",
		}),
		completionQLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flashlog_completion_queue_length",
			Help: "Number of wake messages currently buffered for the completion notifier.",
		}),
		signalsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashlog_signals_dropped_total",
			Help: "Total number of completion handles whose receiver had already been dropped.",
		}),
	}

	reg.MustRegister(
		m.batchesWritten, m.bytesWritten, m.writeErrors, m.writeLatency,
		m.batchSize, m.targetBatchSize, m.ingestQueueLen, m.completionQLen,
		m.signalsDropped,
	)
	return m
}

// Handler exposes this Logger's metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFlush records a successful batch write.
func (m *Metrics) RecordFlush(bytes int, latencySeconds float64) {
	m.batchesWritten.Inc()
	m.bytesWritten.Add(float64(bytes))
	m.writeLatency.Observe(latencySeconds)
	m.batchSize.Observe(float64(bytes))
}

// RecordWriteError records a fatal write_all failure.
func (m *Metrics) RecordWriteError() {
	m.writeErrors.Inc()
}

// SetTargetBatchSize publishes the adaptive sizer's current state.
func (m *Metrics) SetTargetBatchSize(n int64) {
	m.targetBatchSize.Set(float64(n))
}

// TargetBatchSize returns the most recently published target_batch_size.
func (m *Metrics) TargetBatchSize() int64 {
	return int64(testutil.ToFloat64(m.targetBatchSize))
}

// SetIngestQueueLen publishes the current ingest queue depth.
func (m *Metrics) SetIngestQueueLen(n int) {
	m.ingestQueueLen.Set(float64(n))
}

// SetCompletionQueueLen publishes the current completion queue depth.
func (m *Metrics) SetCompletionQueueLen(n int) {
	m.completionQLen.Set(float64(n))
}

// RecordSignalDropped records a SignalDropped event (spec.md §7): a
// completion handle's receiver was gone by the time it was signaled.
func (m *Metrics) RecordSignalDropped() {
	m.signalsDropped.Inc()
}

// Observer allows pluggable metrics collection, mirroring the
// teacher's Observer/NoOpObserver pattern so batcher/notifier code
// can be exercised in tests without a live Metrics instance.
type Observer interface {
	ObserveFlush(bytes int, latencySeconds float64)
	ObserveWriteError()
	ObserveTargetBatchSize(n int64)
	ObserveIngestQueueLen(n int)
	ObserveCompletionQueueLen(n int)
	ObserveSignalDropped()
}

// NoOpObserver is a no-op Observer. Open itself always wires a
// MetricsObserver; NoOpObserver is not used by the Logger.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFlush(int, float64)       {}
func (NoOpObserver) ObserveWriteError()              {}
func (NoOpObserver) ObserveTargetBatchSize(int64)    {}
func (NoOpObserver) ObserveIngestQueueLen(int)       {}
func (NoOpObserver) ObserveCompletionQueueLen(int)   {}
func (NoOpObserver) ObserveSignalDropped()           {}

// MetricsObserver implements Observer using a backing Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveFlush(bytes int, latencySeconds float64) {
	o.metrics.RecordFlush(bytes, latencySeconds)
}

func (o *MetricsObserver) ObserveWriteError() {
	o.metrics.RecordWriteError()
}

func (o *MetricsObserver) ObserveTargetBatchSize(n int64) {
	o.metrics.SetTargetBatchSize(n)
}

func (o *MetricsObserver) ObserveIngestQueueLen(n int) {
	o.metrics.SetIngestQueueLen(n)
}

func (o *MetricsObserver) ObserveCompletionQueueLen(n int) {
	o.metrics.SetCompletionQueueLen(n)
}

func (o *MetricsObserver) ObserveSignalDropped() {
	o.metrics.RecordSignalDropped()
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
