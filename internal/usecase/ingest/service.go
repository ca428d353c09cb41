// Package ingest turns raw document text into embedded, persisted chunks.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/chunker"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/logger"
	"github.com/atrium-law/lexrag/internal/metrics"
)

// Service handles document ingest: clean, chunk, embed in batches, store.
type Service struct {
	repo      Repository
	embedder  BatchEmbedder
	opts      chunker.Options
	batchSize int
}

// New creates an ingest service. batchSize bounds how many chunks go to the
// embedding provider per request.
func New(repo Repository, embedder BatchEmbedder, opts chunker.Options, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Service{repo: repo, embedder: embedder, opts: opts, batchSize: batchSize}
}

// Result reports what ingest produced for one document.
type Result struct {
	DocumentID     string
	Chunks         int
	EmbeddedChunks int
}

// Ingest chunks the document, embeds the chunks batch-at-a-time and stores
// everything. A failed embedding batch is logged and skipped: its chunks are
// stored without vectors and picked up later by Reembed.
func (s *Service) Ingest(ctx context.Context, userID, matterID, name, text string) (Result, error) {
	doc, err := domain.NewDocument(uuid.NewString(), userID, matterID, name, text)
	if err != nil {
		return Result{}, err
	}

	raw := chunker.Chunk(chunker.Clean(doc.Text()), s.opts)
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyDocument)
	}

	embedded := s.embedChunks(ctx, raw)

	if err := s.repo.Store(ctx, &doc, embedded); err != nil {
		return Result{}, fmt.Errorf("store document %s: %w", doc.ID(), err)
	}
	metrics.ChunksStoredTotal.Add(float64(len(embedded)))

	res := Result{DocumentID: doc.ID(), Chunks: len(embedded)}
	for i := range embedded {
		if embedded[i].Embedded() {
			res.EmbeddedChunks++
		}
	}
	return res, nil
}

// Reembed embeds the document's chunks that are still missing vectors.
// Idempotent: a fully embedded document is a no-op. Returns how many vectors
// were filled in.
func (s *Service) Reembed(ctx context.Context, userID, docID string) (int, error) {
	pending, err := s.repo.ListUnembedded(ctx, userID, docID)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	log := logger.FromContext(ctx)
	filled := 0

	for lo := 0; lo < len(pending); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(pending))
		batch := pending[lo:hi]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		result, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			log.Warn("Re-embed batch failed, skipping",
				zap.String("document_id", docID),
				zap.Int("batch_start", lo),
				zap.Error(err))
			continue
		}

		for i, c := range batch {
			if i >= len(result.Embeddings) || len(result.Embeddings[i]) == 0 {
				continue
			}
			if err := s.repo.SetVector(ctx, c.Key, result.Embeddings[i]); err != nil {
				log.Warn("Failed to persist re-embedded vector",
					zap.String("key", c.Key), zap.Error(err))
				continue
			}
			filled++
		}
	}

	return filled, nil
}

// Delete removes all chunks of a document after a tenant check.
func (s *Service) Delete(ctx context.Context, userID, docID string) error {
	return s.repo.DeleteDocument(ctx, userID, docID)
}

// embedChunks embeds batch-at-a-time; a failed batch leaves its chunks
// without vectors instead of failing the whole ingest.
func (s *Service) embedChunks(ctx context.Context, raw []domain.Chunk) []domain.EmbeddedChunk {
	log := logger.FromContext(ctx)

	embedded := make([]domain.EmbeddedChunk, len(raw))
	for i := range raw {
		embedded[i] = domain.EmbeddedChunk{Chunk: raw[i]}
	}

	for lo := 0; lo < len(raw); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(raw))

		texts := make([]string, hi-lo)
		for i := lo; i < hi; i++ {
			texts[i-lo] = raw[i].Content
		}

		result, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			log.Warn("Embedding batch failed, storing chunks without vectors",
				zap.Int("batch_start", lo),
				zap.Int("batch_size", hi-lo),
				zap.Error(err))
			continue
		}

		for i := lo; i < hi; i++ {
			if j := i - lo; j < len(result.Embeddings) {
				embedded[i].Vector = result.Embeddings[j]
			}
		}
	}

	return embedded
}
