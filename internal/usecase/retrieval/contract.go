package retrieval

import (
	"context"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

// Repository defines the storage contract for vector retrieval.
type Repository interface {
	SearchKNN(
		ctx context.Context, vector []float32, scope search.Scope,
		threshold float64, limit int,
	) ([]search.Result, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker re-scores candidates with a cross-encoder.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]domain.RankedItem, error)
}
