// Package retrieval runs the two-stage search pipeline: embed the query, KNN
// over-fetch, cross-encoder rerank with a vector-order fallback.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/logger"
)

// Options holds retrieval tuning knobs.
type Options struct {
	TopK            int
	OverfetchFactor int
	MinSimilarity   float64
}

func (o Options) normalize() Options {
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.OverfetchFactor <= 0 {
		o.OverfetchFactor = 4
	}
	return o
}

// Service handles query-time retrieval.
type Service struct {
	repo     Repository
	embedder Embedder
	reranker Reranker
	opts     Options
}

// New creates a retrieval service.
func New(repo Repository, embedder Embedder, reranker Reranker, opts Options) *Service {
	return &Service{repo: repo, embedder: embedder, reranker: reranker, opts: opts.normalize()}
}

// Search embeds the query, over-fetches candidates by vector similarity and
// reranks them. A rerank failure degrades to vector order, never fails the
// query. Results are capped at topK (request override) or the configured TopK.
func (s *Service) Search(ctx context.Context, query string, scope search.Scope, topK int) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidQuery)
	}
	if topK <= 0 {
		topK = s.opts.TopK
	}

	embResult, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	candidates, err := s.repo.SearchKNN(
		ctx, embResult.Embedding, scope, s.opts.MinSimilarity, topK*s.opts.OverfetchFactor,
	)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	return s.rerank(ctx, query, candidates, topK), nil
}

// rerank re-scores candidates; on any provider failure it falls back to
// vector order truncated to topK with RerankScore unset.
func (s *Service) rerank(ctx context.Context, query string, candidates []search.Result, topK int) []search.Result {
	docs := make([]string, len(candidates))
	for i := range candidates {
		docs[i] = candidates[i].Content
	}

	ranked, err := s.reranker.Rerank(ctx, query, docs, topK)
	if err != nil {
		log := logger.FromContext(ctx)
		if errors.Is(err, domain.ErrProviderUnavailable) {
			log.Debug("Reranker not configured, using vector order")
		} else {
			log.Warn("Rerank failed, falling back to vector order", zap.Error(err))
		}
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		return candidates
	}

	out := make([]search.Result, 0, min(topK, len(ranked)))
	for _, item := range ranked {
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		out = append(out, candidates[item.Index].WithRerankScore(item.Score))
		if len(out) == topK {
			break
		}
	}
	return out
}
