package metrics

import "github.com/prometheus/client_golang/prometheus"

// Inference provider Prometheus metrics. The "operation" label is one of
// embed, rerank, extract, classify.
var (
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "inference_requests_total",
			Help:      "Total number of inference provider requests",
		},
		[]string{"provider", "model", "operation", "status"},
	)

	InferenceRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexrag",
			Name:      "inference_request_duration_seconds",
			Help:      "Inference provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model", "operation"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	InferenceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "inference_errors_total",
			Help:      "Total inference provider errors",
		},
		[]string{"provider", "model", "operation", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ChunksStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "chunks_stored_total",
			Help:      "Total number of chunks written to the vector index",
		},
	)

	CitationsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Name:      "citations_rejected_total",
			Help:      "Citations discarded because the quoted text was not found in its passage",
		},
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lexrag",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Embedding tokens remaining in the budget window",
		},
		[]string{"provider", "window"}, // window: "daily" / "monthly"
	)
)

var inferenceMetricsRegistered bool

// RegisterInferenceMetrics registers inference Prometheus metrics. Must be called once from main.
func RegisterInferenceMetrics() {
	if inferenceMetricsRegistered {
		return
	}
	prometheus.MustRegister(InferenceRequestsTotal)
	prometheus.MustRegister(InferenceRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(InferenceErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(ChunksStoredTotal)
	prometheus.MustRegister(CitationsRejectedTotal)
	prometheus.MustRegister(EmbeddingBudgetTokensRemaining)
	inferenceMetricsRegistered = true
}
