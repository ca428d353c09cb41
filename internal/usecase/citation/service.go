// Package citation extracts verifiable quotes from retrieved chunks. Every
// quote is checked against its source chunk; spans the provider hallucinated
// are discarded rather than surfaced.
package citation

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/logger"
	"github.com/atrium-law/lexrag/internal/metrics"
)

// maxConcurrentExtracts bounds the per-request fan-out to the QA provider.
const maxConcurrentExtracts = 4

// Service handles citation extraction over search results.
type Service struct {
	extractor Extractor
	verified  bool
}

// New creates a citation service. verified marks quotes as index-verified:
// true for a real extractive-QA provider, false for the offline heuristic.
func New(extractor Extractor, verified bool) *Service {
	return &Service{extractor: extractor, verified: verified}
}

// Extract pulls at most maxCitations quotes from the given results,
// concurrently per chunk. Ungrounded spans are rejected. Output is sorted by
// confidence descending. Extraction failures degrade coverage, never the call.
func (s *Service) Extract(
	ctx context.Context, query string, results []search.Result, maxCitations int,
) domain.CitationSet {
	if maxCitations <= 0 || len(results) == 0 {
		return domain.CitationSet{Verified: s.verified}
	}

	candidates := results
	if len(candidates) > maxCitations {
		candidates = candidates[:maxCitations]
	}

	log := logger.FromContext(ctx)
	citations := make([]*domain.VerifiedCitation, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentExtracts)

	for i := range candidates {
		i := i
		g.Go(func() error {
			c, err := s.extractOne(gctx, query, &candidates[i])
			if err != nil {
				log.Warn("Citation extraction failed for chunk",
					zap.String("chunk_id", candidates[i].ID),
					zap.Error(err))
				return nil // degrade, don't cancel siblings
			}
			citations[i] = c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.VerifiedCitation, 0, len(citations))
	for _, c := range citations {
		if c != nil {
			out = append(out, *c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })

	return domain.CitationSet{Citations: out, Verified: s.verified}
}

// extractOne runs QA on a single chunk and keeps the best grounded span.
func (s *Service) extractOne(
	ctx context.Context, query string, res *search.Result,
) (*domain.VerifiedCitation, error) {
	spans, err := s.extractor.Extract(ctx, query, res.Content)
	if err != nil {
		return nil, err
	}

	var best *domain.Span
	for i := range spans {
		if best == nil || spans[i].Score > best.Score {
			best = &spans[i]
		}
	}
	if best == nil {
		return nil, nil
	}

	// Truncated answers carry a trailing ellipsis that is not part of the
	// source text. Strip it before grounding so the quote matches its span.
	quote := best.Answer
	endChar := best.EndChar
	if !strings.Contains(res.Content, quote) {
		quote = strings.TrimSuffix(quote, "...")
		endChar = best.StartChar + len(quote)
	}

	c := &domain.VerifiedCitation{
		DocumentName:   res.DocumentName,
		ChunkID:        res.ID,
		ChunkIndex:     res.ChunkIndex,
		ExactQuote:     quote,
		StartChar:      best.StartChar,
		EndChar:        endChar,
		Confidence:     best.Score,
		RelevanceScore: res.Relevance(),
		FullContext:    res.Content,
	}
	if !c.Grounded() {
		metrics.CitationsRejectedTotal.Inc()
		logger.FromContext(ctx).Warn("Rejected ungrounded citation",
			zap.String("chunk_id", res.ID),
			zap.Int("quote_len", len(best.Answer)))
		return nil, nil
	}
	return c, nil
}
