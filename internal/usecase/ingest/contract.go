package ingest

import (
	"context"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/repository/chunks"
)

// Repository defines the storage contract for chunk persistence.
type Repository interface {
	Store(ctx context.Context, doc *domain.Document, chunks []domain.EmbeddedChunk) error
	ListUnembedded(ctx context.Context, userID, docID string) ([]chunks.StoredChunk, error)
	SetVector(ctx context.Context, key string, vector []float32) error
	DeleteDocument(ctx context.Context, userID, docID string) error
}

// BatchEmbedder vectorizes texts batch-at-a-time.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
