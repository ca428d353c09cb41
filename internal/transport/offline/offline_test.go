package offline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atrium-law/lexrag/internal/domain"
)

func TestReranker_Unavailable(t *testing.T) {
	_, err := NewReranker().Rerank(context.Background(), "q", []string{"a", "b"}, 2)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestClassifier_Unavailable(t *testing.T) {
	_, err := NewClassifier().Classify(context.Background(), "text", []string{"a"})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestExtractor_FirstSentence(t *testing.T) {
	passage := "The Supplier shall indemnify the Customer. Further obligations follow in the next clause."

	spans, err := NewExtractor().Extract(context.Background(), "q", passage)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	want := "The Supplier shall indemnify the Customer."
	if spans[0].Answer != want {
		t.Errorf("answer = %q, want %q", spans[0].Answer, want)
	}
	if spans[0].StartChar != 0 || spans[0].EndChar != len(want) {
		t.Errorf("unexpected offsets: %+v", spans[0])
	}
	if spans[0].Score != 0.5 {
		t.Errorf("expected heuristic confidence 0.5, got %f", spans[0].Score)
	}
	// The grounding invariant must hold for heuristic quotes too.
	if passage[spans[0].StartChar:spans[0].EndChar] != spans[0].Answer {
		t.Error("answer is not the passage slice at its offsets")
	}
}

func TestExtractor_NoSentenceBoundary(t *testing.T) {
	passage := strings.Repeat("word ", 100) // 500 chars, no sentence end
	passage = strings.TrimSpace(passage)

	spans, err := NewExtractor().Extract(context.Background(), "q", passage)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	if !strings.HasSuffix(spans[0].Answer, "...") {
		t.Errorf("expected ellipsis suffix, got %q", spans[0].Answer)
	}
	if spans[0].EndChar > 200 {
		t.Errorf("expected cut within 200 chars, got %d", spans[0].EndChar)
	}
	// Cut lands on a word boundary.
	body := strings.TrimSuffix(spans[0].Answer, "...")
	if strings.HasSuffix(body, " ") {
		t.Errorf("cut left trailing space: %q", body)
	}
	if passage[spans[0].StartChar:spans[0].EndChar] != body {
		t.Error("answer body is not the passage slice at its offsets")
	}
}

func TestExtractor_ShortPassage(t *testing.T) {
	passage := "short clause without terminal punctuation"

	spans, err := NewExtractor().Extract(context.Background(), "q", passage)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Answer != passage {
		t.Errorf("expected full passage, got %q", spans[0].Answer)
	}
	if spans[0].EndChar != len(passage) {
		t.Errorf("unexpected end offset: %d", spans[0].EndChar)
	}
}

func TestExtractor_EmptyPassage(t *testing.T) {
	spans, err := NewExtractor().Extract(context.Background(), "q", "   ")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if spans != nil {
		t.Errorf("expected nil for blank passage, got %v", spans)
	}
}

func TestExtractor_QuestionMarkBoundary(t *testing.T) {
	passage := "Is this binding? The parties agree it is."

	spans, err := NewExtractor().Extract(context.Background(), "q", passage)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if spans[0].Answer != "Is this binding?" {
		t.Errorf("unexpected answer: %q", spans[0].Answer)
	}
}
