// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interview_evaluator"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionOutcomes *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Local engine metrics
	LocalAttempts  prometheus.Counter
	LocalSuccesses prometheus.Counter
	LocalFailures  *prometheus.CounterVec
	ModelLoads     prometheus.Counter

	// Fallback metrics
	FallbackConfirmations *prometheus.CounterVec
	RemoteChunksTotal     prometheus.Counter
	RemoteChunkErrors     prometheus.Counter
	RemoteChunkLatency    prometheus.Histogram

	// Scoring metrics
	ScoringRequests      prometheus.Counter
	ScoringFailures      *prometheus.CounterVec
	ScoringLatency       prometheus.Histogram
	VerdictShapeWarnings prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of transcription sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active transcription sessions",
		}),
		SessionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_outcomes_total",
			Help:      "Terminal session outcomes",
		}, []string{"outcome"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of transcription sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),

		LocalAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_attempts_total",
			Help:      "Total number of local transcription attempts",
		}),
		LocalSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_successes_total",
			Help:      "Total number of local transcriptions that completed",
		}),
		LocalFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_failures_total",
			Help:      "Total number of local transcription failures",
		}, []string{"reason"}),
		ModelLoads: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of speech model cold loads",
		}),

		FallbackConfirmations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_confirmations_total",
			Help:      "User decisions on the remote fallback confirmation prompt",
		}, []string{"decision"}),
		RemoteChunksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_chunks_total",
			Help:      "Total number of chunks submitted to the remote transcription service",
		}),
		RemoteChunkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_chunk_errors_total",
			Help:      "Total number of failed remote chunk submissions",
		}),
		RemoteChunkLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_chunk_latency_seconds",
			Help:      "Remote chunk round-trip latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		ScoringRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Total number of scoring requests",
		}),
		ScoringFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_failures_total",
			Help:      "Total number of scoring failures",
		}, []string{"reason"}),
		ScoringLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_latency_seconds",
			Help:      "Scoring request latency in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80},
		}),
		VerdictShapeWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdict_shape_warnings_total",
			Help:      "Total number of verdicts that deviated from the rubric shape",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new transcription session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session reaching a terminal state.
func (m *Metrics) RecordSessionEnd(outcome string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	m.SessionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordLocalAttempt records a local transcription attempt starting.
func (m *Metrics) RecordLocalAttempt() {
	m.LocalAttempts.Inc()
}

// RecordLocalSuccess records a completed local transcription.
func (m *Metrics) RecordLocalSuccess() {
	m.LocalSuccesses.Inc()
}

// RecordLocalFailure records a local failure or timeout.
func (m *Metrics) RecordLocalFailure(reason string) {
	m.LocalFailures.WithLabelValues(reason).Inc()
}

// RecordModelLoad records a speech model cold load.
func (m *Metrics) RecordModelLoad() {
	m.ModelLoads.Inc()
}

// RecordFallbackConfirmation records the user's fallback decision.
func (m *Metrics) RecordFallbackConfirmation(accepted bool) {
	decision := "declined"
	if accepted {
		decision = "accepted"
	}
	m.FallbackConfirmations.WithLabelValues(decision).Inc()
}

// RecordRemoteChunk records one remote chunk round trip.
func (m *Metrics) RecordRemoteChunk(err error, latencySeconds float64) {
	m.RemoteChunksTotal.Inc()
	m.RemoteChunkLatency.Observe(latencySeconds)
	if err != nil {
		m.RemoteChunkErrors.Inc()
	}
}

// RecordScoring records one scoring request.
func (m *Metrics) RecordScoring(latencySeconds float64) {
	m.ScoringRequests.Inc()
	m.ScoringLatency.Observe(latencySeconds)
}

// RecordScoringFailure records a failed scoring request.
func (m *Metrics) RecordScoringFailure(reason string) {
	m.ScoringFailures.WithLabelValues(reason).Inc()
}

// RecordVerdictShapeWarning records a verdict that did not match the rubric
// shape exactly.
func (m *Metrics) RecordVerdictShapeWarning() {
	m.VerdictShapeWarnings.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
