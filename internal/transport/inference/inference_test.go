package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterInferenceMetrics()
	os.Exit(m.Run())
}

func testConfig(t *testing.T, handler http.HandlerFunc) *Config {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Config{
		BaseURL:  server.URL,
		APIKey:   "test-key",
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	}
}

func TestReranker_Rerank(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
			TopN      int      `json:"top_n"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "indemnification obligations" {
			t.Errorf("unexpected query: %q", req.Query)
		}
		if len(req.Documents) != 3 {
			t.Errorf("expected 3 documents, got %d", len(req.Documents))
		}

		// Out of score order on purpose.
		_, _ = w.Write([]byte(`{"results":[
			{"index":1,"relevance_score":0.4},
			{"index":2,"relevance_score":0.9},
			{"index":0,"relevance_score":0.7}
		]}`))
	})

	items, err := NewReranker(cfg).Rerank(
		context.Background(), "indemnification obligations", []string{"a", "b", "c"}, 2,
	)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Index != 2 || items[0].Score != 0.9 {
		t.Errorf("unexpected top item: %+v", items[0])
	}
	if items[1].Index != 0 || items[1].Score != 0.7 {
		t.Errorf("unexpected second item: %+v", items[1])
	}
}

func TestReranker_IndexOutOfRange(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":5,"relevance_score":0.9}]}`))
	})

	_, err := NewReranker(cfg).Rerank(context.Background(), "q", []string{"a"}, 1)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestReranker_EmptyDocuments(t *testing.T) {
	cfg := testConfig(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected for empty input")
	})

	items, err := NewReranker(cfg).Rerank(context.Background(), "q", nil, 5)
	if err != nil || items != nil {
		t.Fatalf("expected nil, nil; got %v, %v", items, err)
	}
}

func TestReranker_APIError(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"detail":"model loading"}`))
	})

	_, err := NewReranker(cfg).Rerank(context.Background(), "q", []string{"a"}, 1)
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestExtractor_Extract(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/question-answering" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Question string `json:"question"`
			Context  string `json:"context"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Question == "" || req.Context == "" {
			t.Error("expected question and context in request")
		}

		_, _ = w.Write([]byte(`{"answer":"thirty days","score":0.87,"start":24,"end":35}`))
	})

	spans, err := NewExtractor(cfg).Extract(
		context.Background(), "What is the notice period?", "Either party may give... thirty days notice.",
	)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Answer != "thirty days" || spans[0].Score != 0.87 {
		t.Errorf("unexpected span: %+v", spans[0])
	}
	if spans[0].StartChar != 24 || spans[0].EndChar != 35 {
		t.Errorf("unexpected offsets: %+v", spans[0])
	}
}

func TestExtractor_ListResponse(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"answer":"first","score":0.9,"start":0,"end":5},
			{"answer":"second","score":0.4,"start":10,"end":16}
		]`))
	})

	spans, err := NewExtractor(cfg).Extract(context.Background(), "q", "passage")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
}

func TestExtractor_EmptyAnswerSkipped(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"","score":0.1,"start":0,"end":0}`))
	})

	spans, err := NewExtractor(cfg).Extract(context.Background(), "q", "passage")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("expected empty answer to be skipped, got %v", spans)
	}
}

func TestClassifier_Classify(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zero-shot-classification" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Inputs     string `json:"inputs"`
			Parameters struct {
				CandidateLabels []string `json:"candidate_labels"`
				MultiLabel      bool     `json:"multi_label"`
			} `json:"parameters"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Parameters.CandidateLabels) != 3 {
			t.Errorf("expected 3 labels, got %d", len(req.Parameters.CandidateLabels))
		}
		if !req.Parameters.MultiLabel {
			t.Error("expected multi_label=true")
		}

		_, _ = w.Write([]byte(`{"labels":["high risk","medium risk","low risk"],"scores":[0.7,0.2,0.1]}`))
	})

	labels, err := NewClassifier(cfg).Classify(
		context.Background(), "clause text", []string{"high risk", "medium risk", "low risk"},
	)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if len(labels) != 3 {
		t.Fatalf("expected 3 scored labels, got %d", len(labels))
	}
	best, ok := domain.BestLabel(labels)
	if !ok || best.Label != "high risk" {
		t.Errorf("unexpected best label: %+v", best)
	}
}

func TestClassifier_MismatchedArrays(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"labels":["a","b"],"scores":[0.5]}`))
	})

	_, err := NewClassifier(cfg).Classify(context.Background(), "text", []string{"a", "b"})
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestParseAPIError_Formats(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"detail field", `{"detail":"rate limited"}`},
		{"error field", `{"error":"bad input"}`},
		{"plain text", `upstream timeout`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := NewReranker(cfg).Rerank(context.Background(), "q", []string{"a"}, 1)
			if !errors.Is(err, domain.ErrProviderError) {
				t.Fatalf("expected ErrProviderError, got %v", err)
			}
		})
	}
}
