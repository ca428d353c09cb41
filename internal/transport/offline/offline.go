// Package offline holds deterministic in-process stand-ins for the inference
// providers. They keep the pipeline fully functional without any model
// endpoint: reranking degrades to vector order, citations to a first-sentence
// heuristic, classification to conservative defaults.
package offline

import (
	"context"
	"strings"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Heuristic confidence assigned to every offline result.
const heuristicConfidence = 0.5

const (
	sentenceWindow = 300
	fallbackCut    = 200
)

// Reranker reports itself unavailable so callers keep the vector ordering.
// A fabricated cross-encoder score would outrank real similarity scores.
type Reranker struct{}

// NewReranker creates the offline reranker.
func NewReranker() *Reranker { return &Reranker{} }

// Rerank implements domain.Reranker.
func (Reranker) Rerank(_ context.Context, _ string, _ []string, _ int) ([]domain.RankedItem, error) {
	return nil, domain.ErrProviderUnavailable
}

// Extractor returns the opening sentence of the passage as the quote.
type Extractor struct{}

// NewExtractor creates the offline extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract implements domain.Extractor: the first sentence within the first
// 300 characters, or the first 200 characters cut at a word boundary with an
// ellipsis when no sentence boundary is found.
func (Extractor) Extract(_ context.Context, _, passage string) ([]domain.Span, error) {
	passage = strings.TrimSpace(passage)
	if passage == "" {
		return nil, nil
	}

	window := passage
	if len(window) > sentenceWindow {
		window = window[:sentenceWindow]
	}

	if end, ok := firstSentenceEnd(window); ok {
		return []domain.Span{{
			Answer:    passage[:end],
			StartChar: 0,
			EndChar:   end,
			Score:     heuristicConfidence,
		}}, nil
	}

	if len(passage) <= fallbackCut {
		return []domain.Span{{
			Answer:    passage,
			StartChar: 0,
			EndChar:   len(passage),
			Score:     heuristicConfidence,
		}}, nil
	}

	cut := passage[:fallbackCut]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return []domain.Span{{
		Answer:    cut + "...",
		StartChar: 0,
		EndChar:   len(cut),
		Score:     heuristicConfidence,
	}}, nil
}

// firstSentenceEnd finds the end of the first sentence: ". ", or "!"/"?"
// followed by whitespace.
func firstSentenceEnd(s string) (int, bool) {
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '.':
			if s[i+1] == ' ' {
				return i + 1, true
			}
		case '!', '?':
			if s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// Classifier reports itself unavailable; callers apply their conservative
// defaults (medium risk, mutual obligations) instead of a fabricated label.
type Classifier struct{}

// NewClassifier creates the offline classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify implements domain.Classifier.
func (Classifier) Classify(_ context.Context, _ string, _ []string) ([]domain.ScoredLabel, error) {
	return nil, domain.ErrProviderUnavailable
}
