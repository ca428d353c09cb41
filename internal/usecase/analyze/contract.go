package analyze

import (
	"context"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Classifier scores a text against zero-shot hypotheses.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]domain.ScoredLabel, error)
}

// Extractor pulls the exact clause quote out of a detected chunk.
type Extractor interface {
	Extract(ctx context.Context, question, passage string) ([]domain.Span, error)
}

// ChunkSource loads a stored document's chunks for analysis.
type ChunkSource interface {
	ListChunks(ctx context.Context, userID, docID string) ([]domain.Chunk, error)
}
