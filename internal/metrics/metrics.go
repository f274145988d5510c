package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalyzerFailures counts sub-analyzer steps that fell back to their default value
	AnalyzerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_triage_analyzer_failures_total",
			Help: "Total number of analysis steps that returned their fallback value",
		},
		[]string{"step"},
	)

	// CacheLookups counts cache lookups by outcome: hit, miss, bypass, error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_triage_cache_lookups_total",
			Help: "Total number of analysis cache lookups by outcome",
		},
		[]string{"op", "outcome"},
	)

	// CompletionLatency tracks LLM completion latency in milliseconds
	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_triage_completion_latency_ms",
			Help:    "LLM completion latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "status"},
	)

	// AnalysisDuration tracks full uncached analysis time in seconds
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mail_triage_analysis_duration_seconds",
			Help:    "Duration of an uncached email analysis in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// BreakerStateChanges counts circuit breaker transitions by target state
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_triage_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"name", "state"},
	)

	// EmailsProcessed counts emails handled by a frontend
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_triage_emails_processed_total",
			Help: "Total number of emails processed by frontend and status",
		},
		[]string{"frontend", "status"},
	)
)

// RecordAnalyzerFailure increments the failure counter for a step
func RecordAnalyzerFailure(step string) {
	AnalyzerFailures.WithLabelValues(step).Inc()
}

// RecordCacheLookup increments the lookup counter for an outcome
func RecordCacheLookup(op, outcome string) {
	CacheLookups.WithLabelValues(op, outcome).Inc()
}

// RecordCompletionLatency observes a completion call
func RecordCompletionLatency(provider, status string, duration time.Duration) {
	CompletionLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

// RecordAnalysisDuration observes an uncached analysis
func RecordAnalysisDuration(duration time.Duration) {
	AnalysisDuration.Observe(duration.Seconds())
}

// RecordBreakerStateChange counts a breaker transition
func RecordBreakerStateChange(name, state string) {
	BreakerStateChanges.WithLabelValues(name, state).Inc()
}

// IncrementEmailProcessed counts a processed email
func IncrementEmailProcessed(frontend, status string) {
	EmailsProcessed.WithLabelValues(frontend, status).Inc()
}
