package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels. Validation warnings are
// free-form strings, so they are normalized into this fixed set before being
// used as label values.
const (
	WarningSentiment   = "sentiment_contradiction"
	WarningPrice       = "price_contradiction"
	WarningTicker      = "ticker_missing"
	WarningUnsupported = "unsupported_claim"
	WarningOther       = "other"
)

var (
	// AnalysesTotal counts completed analyses by mode and by the model that
	// produced the result ("rule_based", "none", a provider name, or "error")
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantforge_analyses_total",
			Help: "Total analyses performed, by mode and answering model",
		},
		[]string{"mode", "model"},
	)

	// AnalysisDuration observes end-to-end analysis latency by mode
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantforge_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	// ValidationWarningsTotal counts hallucination-check warnings by category
	ValidationWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantforge_validation_warnings_total",
			Help: "Validation warnings raised against LLM output, by check category",
		},
		[]string{"check"},
	)

	// HTTPRequestsTotal counts API requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantforge_http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes API request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quantforge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// FeedItemsIngested counts documents and bars written by the feed connectors
	FeedItemsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantforge_feed_items_ingested_total",
			Help: "Items ingested by feed connectors, by feed type",
		},
		[]string{"feed"},
	)
)

// RecordAnalysis records one completed (or failed) analysis
func RecordAnalysis(mode, model string, duration time.Duration) {
	AnalysesTotal.WithLabelValues(mode, model).Inc()
	AnalysisDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordValidationWarning normalizes a warning string into a bounded category
// and counts it
func RecordValidationWarning(warning string) {
	ValidationWarningsTotal.WithLabelValues(NormalizeWarning(warning)).Inc()
}

// NormalizeWarning maps free-form validation warnings to the bounded label set
func NormalizeWarning(warning string) string {
	lower := strings.ToLower(warning)
	switch {
	case strings.Contains(lower, "sentiment"):
		return WarningSentiment
	case strings.Contains(lower, "price"):
		return WarningPrice
	case strings.Contains(lower, "ticker"):
		return WarningTicker
	case strings.Contains(lower, "confidence") || strings.Contains(lower, "prediction"):
		return WarningUnsupported
	default:
		return WarningOther
	}
}
