package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "math_agent"

// Metrics holds the Prometheus collectors for the solve pipeline and
// feedback store. Initialize once at startup via NewMetrics.
type Metrics struct {
	// SolveTotal counts solve requests by outcome (answered, input_rejected,
	// output_rejected, synthesis_failure, error) and answer source.
	SolveTotal *prometheus.CounterVec

	// SolveDuration measures end-to-end solve latency.
	SolveDuration prometheus.Histogram

	// TierDuration measures each pipeline tier. Labels: tier, status.
	TierDuration *prometheus.HistogramVec

	// GuardrailRejections counts rejections by stage (input, output) and reason.
	GuardrailRejections *prometheus.CounterVec

	// SynthesisAttempts counts synthesis calls by directive (standard, strict).
	SynthesisAttempts *prometheus.CounterVec

	// WebSearchFailures counts web search calls that degraded to no results.
	// Labels: reason (timeout, connect, transport, tool_error, decode).
	WebSearchFailures *prometheus.CounterVec

	// FeedbackRatings counts stored feedback by rating value.
	FeedbackRatings *prometheus.CounterVec

	// KnowledgeBaseEntries reports the number of indexed knowledge entries.
	KnowledgeBaseEntries prometheus.Gauge
}

// NewMetrics registers all collectors with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SolveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "solve_requests_total",
				Help:      "Total solve requests by outcome and answer source",
			},
			[]string{"outcome", "source"},
		),
		SolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "solve_duration_seconds",
				Help:      "End-to-end solve latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
			},
		),
		TierDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "tier_duration_seconds",
				Help:      "Latency of each pipeline tier",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tier", "status"},
		),
		GuardrailRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "guardrail_rejections_total",
				Help:      "Guardrail rejections by stage and reason",
			},
			[]string{"stage", "reason"},
		),
		SynthesisAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "synthesis_attempts_total",
				Help:      "Answer synthesis calls by directive",
			},
			[]string{"directive"},
		),
		WebSearchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "web_search_failures_total",
				Help:      "Web search calls that degraded to an empty result",
			},
			[]string{"reason"},
		),
		FeedbackRatings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "feedback_ratings_total",
				Help:      "Stored feedback by rating",
			},
			[]string{"rating"},
		),
		KnowledgeBaseEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "knowledge_base_entries",
				Help:      "Number of entries in the knowledge base index",
			},
		),
	}
}

// ObserveTier records the duration of one tier call. Safe on a nil receiver.
func (m *Metrics) ObserveTier(tier, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TierDuration.WithLabelValues(tier, status).Observe(d.Seconds())
}

// ObserveSolve records a finished solve. source is empty for rejected requests.
func (m *Metrics) ObserveSolve(outcome, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.SolveTotal.WithLabelValues(outcome, source).Inc()
	m.SolveDuration.Observe(d.Seconds())
}

// RecordRejection counts a guardrail rejection.
func (m *Metrics) RecordRejection(stage, reason string) {
	if m == nil {
		return
	}
	m.GuardrailRejections.WithLabelValues(stage, reason).Inc()
}

// RecordSynthesis counts one synthesis attempt.
func (m *Metrics) RecordSynthesis(directive string) {
	if m == nil {
		return
	}
	m.SynthesisAttempts.WithLabelValues(directive).Inc()
}

// RecordWebSearchFailure counts a degraded web search.
func (m *Metrics) RecordWebSearchFailure(reason string) {
	if m == nil {
		return
	}
	m.WebSearchFailures.WithLabelValues(reason).Inc()
}

// RecordFeedback counts one stored feedback rating.
func (m *Metrics) RecordFeedback(rating string) {
	if m == nil {
		return
	}
	m.FeedbackRatings.WithLabelValues(rating).Inc()
}

// SetKnowledgeBaseSize reports the current index size.
func (m *Metrics) SetKnowledgeBaseSize(n int) {
	if m == nil {
		return
	}
	m.KnowledgeBaseEntries.Set(float64(n))
}
