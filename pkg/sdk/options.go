package lexrag

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// endpointConfig points one inference concern at an HTTP provider.
type endpointConfig struct {
	baseURL string
	apiKey  string
	model   string
}

func (e endpointConfig) configured() bool { return e.baseURL != "" }

type clientConfig struct {
	addrs    []string
	password string

	embedder Embedder

	keyPrefix        string
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	chunkSize    int
	chunkOverlap int
	minChunkSize int

	topK            int
	overfetchFactor int
	minSimilarity   float64
	maxCitations    int
	clauseThreshold float64
	embedBatchSize  int

	reranker   endpointConfig
	extractor  endpointConfig
	classifier endpointConfig

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithKeyPrefix sets the key prefix isolating this deployment's data.
// Defaults to "lexrag:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithVectorDimensions sets the vector dimension of the embedding model.
// Defaults to 1024 (Qwen3-Embedding-8B).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithChunking sets the chunk size and overlap in characters.
// Defaults: size=1200, overlap=200.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithRetrieval sets the default result count and the minimum vector
// similarity below which candidates are discarded.
// Defaults: topK=10, minSimilarity=0.
func WithRetrieval(topK int, minSimilarity float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.minSimilarity = minSimilarity
	})
}

// WithMaxCitations sets the default citation cap per search. Default: 5.
func WithMaxCitations(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxCitations = n
	})
}

// WithRerankerEndpoint points candidate reranking at a cross-encoder
// HTTP service. Without it a deterministic lexical reranker is used.
func WithRerankerEndpoint(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.reranker = endpointConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithExtractorEndpoint points citation quote extraction at an
// extractive-QA HTTP service. Without it a heuristic sentence picker is
// used and citations are marked unverified.
func WithExtractorEndpoint(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = endpointConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithClassifierEndpoint points clause risk classification at a
// zero-shot classifier HTTP service. Without it keyword heuristics
// assign risk.
func WithClassifierEndpoint(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.classifier = endpointConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
