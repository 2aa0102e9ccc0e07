package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding Prometheus metrics. Provider requests are labelled by provider and
// model; product seeding sends one request per ingest batch, so the inputs
// histogram tracks how full those batches are.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding provider requests by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Embedding provider request latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	EmbeddingInputs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "request_inputs",
			Help:      "Texts sent per embedding provider request",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"provider"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Embedding provider failures by kind",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingRateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "rate_limited_total",
			Help:      "Embedding calls rejected by the local rate limiter",
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dossier",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the embedding metrics once.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingInputs,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingRateLimitedTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}

// ObserveEmbeddingRequest records one successful provider request.
func ObserveEmbeddingRequest(provider, model string, inputs int, took time.Duration, promptTokens, totalTokens int) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(took.Seconds())
	EmbeddingInputs.WithLabelValues(provider).Observe(float64(inputs))
	if totalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}

// ObserveEmbeddingError records one failed provider request.
func ObserveEmbeddingError(provider, model, kind string) {
	EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
	EmbeddingErrorsTotal.WithLabelValues(provider, model, kind).Inc()
}
