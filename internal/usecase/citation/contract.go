package citation

import (
	"context"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Extractor locates answer spans inside retrieved chunks.
type Extractor interface {
	Extract(ctx context.Context, question, passage string) ([]domain.Span, error)
}
