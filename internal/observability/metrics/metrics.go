// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "extract_segmenter"

// Metrics holds all Prometheus metrics for the segmenter.
type Metrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Parse metrics
	UtterancesTotal       prometheus.Counter
	SegmentsEmitted       prometheus.Counter
	DanglingContinuations prometheus.Counter
	ParseErrors           *prometheus.CounterVec

	// Sink metrics
	SinkWrites  *prometheus.CounterVec
	SinkLatency *prometheus.HistogramVec

	// Publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance, registered with the default
// Prometheus registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of parse sessions by result",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of parse sessions in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),

		UtterancesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterances parsed",
		}),
		SegmentsEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of segments handed to a sink",
		}),
		DanglingContinuations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dangling_continuations_total",
			Help:      "Sessions that ended with a continued segment never closed",
		}),
		ParseErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total number of failed parse sessions by error kind",
		}, []string{"kind"}),

		SinkWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Total number of sink writes by sink and result",
		}, []string{"sink", "result"}),
		SinkLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_latency_seconds",
			Help:      "Sink write latency in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"sink"}),

		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total number of segment events published",
		}, []string{"backend", "destination"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total number of segment event publish errors",
		}, []string{"backend", "destination"}),
		PublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend"}),
	}
}

// RecordRun records a finished parse session.
func (m *Metrics) RecordRun(success bool, durationSeconds float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordUtterances adds n parsed utterances.
func (m *Metrics) RecordUtterances(n int) {
	m.UtterancesTotal.Add(float64(n))
}

// RecordSegments adds n emitted segments.
func (m *Metrics) RecordSegments(n int) {
	m.SegmentsEmitted.Add(float64(n))
}

func (m *Metrics) RecordDanglingContinuation() {
	m.DanglingContinuations.Inc()
}

// RecordParseError records a failed session under its error kind.
func (m *Metrics) RecordParseError(kind string) {
	m.ParseErrors.WithLabelValues(kind).Inc()
}

// RecordSinkWrite records one sink write attempt.
func (m *Metrics) RecordSinkWrite(sink string, err error, latencySeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkWrites.WithLabelValues(sink, result).Inc()
	m.SinkLatency.WithLabelValues(sink).Observe(latencySeconds)
}

// RecordPublish records a publish attempt.
func (m *Metrics) RecordPublish(backend, destination string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(backend, destination).Inc()
	m.PublishLatency.WithLabelValues(backend).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(backend, destination).Inc()
	}
}
