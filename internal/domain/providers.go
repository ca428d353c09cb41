package domain

import "context"

// Reranker is the second-stage relevance scoring contract. Scores are in
// [0,1], returned in strictly descending order, at most topK items.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedItem, error)
}

// RankedItem points back into the candidate slice passed to Rerank.
type RankedItem struct {
	Index int
	Score float64
}

// Extractor locates answer spans inside a passage (extractive QA).
type Extractor interface {
	Extract(ctx context.Context, question, passage string) ([]Span, error)
}

// Span is a scored answer span with character offsets into the passage.
type Span struct {
	Answer    string
	StartChar int
	EndChar   int
	Score     float64
}

// Classifier assigns zero-shot labels to a text. Scores are not required to
// sum to 1 across labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]ScoredLabel, error)
}

// ScoredLabel is a single zero-shot classification outcome.
type ScoredLabel struct {
	Label string
	Score float64
}

// BestLabel returns the highest-scoring label, or ok=false for an empty set.
func BestLabel(labels []ScoredLabel) (ScoredLabel, bool) {
	if len(labels) == 0 {
		return ScoredLabel{}, false
	}
	best := labels[0]
	for _, l := range labels[1:] {
		if l.Score > best.Score {
			best = l
		}
	}
	return best, true
}
