package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestIngestDocument(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp := postJSON(t, ts.URL+"/v1/documents", ingestRequest{
		UserID: "user-a",
		Name:   "MSA.txt",
		Text:   "The Supplier shall indemnify the Customer against all third-party claims.",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	body := decode[ingestResponse](t, resp)
	if body.DocumentID == "" {
		t.Error("expected a document ID")
	}
	if body.Chunks != 1 || body.EmbeddedChunks != 1 {
		t.Errorf("expected 1 embedded chunk, got %+v", body)
	}
}

func TestIngestDocument_Validation(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp := postJSON(t, ts.URL+"/v1/documents", ingestRequest{Name: "x", Text: "text"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user_id: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/documents", ingestRequest{UserID: "user-a", Text: "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text: expected 400, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != codeValidationFailed {
		t.Errorf("expected %s, got %s", codeValidationFailed, body.Code)
	}
}

func TestReembedDocument(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp := postJSON(t, ts.URL+"/v1/documents/doc-1/reembed?user_id=user-a", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[reembedResponse](t, resp)
	if body.DocumentID != "doc-1" || body.Embedded != 0 {
		t.Errorf("unexpected response: %+v", body)
	}

	resp = postJSON(t, ts.URL+"/v1/documents/doc-1/reembed", struct{}{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user_id: expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteDocument(t *testing.T) {
	repo := &mockChunkRepo{}
	ts := newTestServer(t, serverDeps{repo: repo})

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/documents/doc-1?user_id=user-a", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	repo.deleteFn = func(_ context.Context, _, _ string) error { return domain.ErrUnauthorized }
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/v1/documents/doc-1?user_id=user-b", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign document, got %d", resp2.StatusCode)
	}
}

func knnResults() []search.Result {
	return []search.Result{
		{
			ID:           "lexrag:chunk:doc-1:0",
			DocumentID:   "doc-1",
			DocumentName: "MSA.txt",
			ChunkIndex:   0,
			Content:      "The Supplier shall indemnify the Customer. Claims must be notified promptly.",
			Similarity:   0.91,
		},
		{
			ID:           "lexrag:chunk:doc-1:3",
			DocumentID:   "doc-1",
			DocumentName: "MSA.txt",
			ChunkIndex:   3,
			Content:      "Either party may terminate with thirty days notice. Notice must be written.",
			Similarity:   0.84,
		},
	}
}

func TestSearch(t *testing.T) {
	repo := &mockChunkRepo{searchKNNFn: func(_ context.Context, _ []float32, scope search.Scope, _ float64, limit int) ([]search.Result, error) {
		if scope.UserID() != "user-a" {
			t.Errorf("expected tenant scope user-a, got %q", scope.UserID())
		}
		if limit != 20 { // topK 5 x overfetch 4
			t.Errorf("expected over-fetch limit 20, got %d", limit)
		}
		return knnResults(), nil
	}}
	ts := newTestServer(t, serverDeps{repo: repo})

	resp := postJSON(t, ts.URL+"/v1/search", searchRequest{UserID: "user-a", Query: "indemnification"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decode[searchResponse](t, resp)
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	// Offline reranker: vector order kept, rerank scores unset.
	if body.Results[0].Similarity != 0.91 || body.Results[0].RerankScore != nil {
		t.Errorf("unexpected first result: %+v", body.Results[0])
	}
	if body.Citations == nil || body.Citations.Verified {
		t.Fatalf("expected unverified heuristic citations, got %+v", body.Citations)
	}
	if len(body.Citations.Items) != 2 {
		t.Errorf("expected 2 citations, got %d", len(body.Citations.Items))
	}
	if body.Analysis != nil {
		t.Error("clause analysis should be absent unless requested")
	}
	if !strings.Contains(body.Context, "[Document 1: MSA.txt (relevance: 91%)]") {
		t.Errorf("unexpected context:\n%s", body.Context)
	}
}

func TestSearch_Validation(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp := postJSON(t, ts.URL+"/v1/search", searchRequest{Query: "q"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user_id: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/search", searchRequest{UserID: "user-a", Query: "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query: expected 400, got %d", resp.StatusCode)
	}
}

func TestSearch_EmbedderDown(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, domain.ErrProviderError
	}}
	ts := newTestServer(t, serverDeps{embedder: emb})

	resp := postJSON(t, ts.URL+"/v1/search", searchRequest{UserID: "user-a", Query: "q"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != codeProviderError {
		t.Errorf("expected %s, got %s", codeProviderError, body.Code)
	}
}

func TestSearch_ClauseAnalysisDegrades(t *testing.T) {
	repo := &mockChunkRepo{searchKNNFn: func(_ context.Context, _ []float32, _ search.Scope, _ float64, _ int) ([]search.Result, error) {
		return knnResults(), nil
	}}
	// Default mock classifier is offline: analysis is skipped, search still 200.
	ts := newTestServer(t, serverDeps{repo: repo})

	resp := postJSON(t, ts.URL+"/v1/search", searchRequest{
		UserID: "user-a", Query: "indemnification", AnalyzeClauses: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[searchResponse](t, resp)
	if body.Analysis != nil {
		t.Errorf("expected analysis section to be omitted, got %+v", body.Analysis)
	}
	if len(body.Results) != 2 {
		t.Errorf("results must survive analysis failure, got %d", len(body.Results))
	}
}

// detectingClassifier scores every hypothesis high, so each query detects.
func detectingClassifier() *mockClassifier {
	return &mockClassifier{classifyFn: func(_ context.Context, _ string, labels []string) ([]domain.ScoredLabel, error) {
		out := make([]domain.ScoredLabel, len(labels))
		for i, l := range labels {
			out[i] = domain.ScoredLabel{Label: l, Score: 0.9}
		}
		return out, nil
	}}
}

func TestAnalyze_StoredDocument(t *testing.T) {
	repo := &mockChunkRepo{listChunksFn: func(_ context.Context, userID, docID string) ([]domain.Chunk, error) {
		if userID != "user-a" || docID != "doc-1" {
			t.Errorf("unexpected lookup: %s/%s", userID, docID)
		}
		return []domain.Chunk{{Index: 0, Content: "Either party may terminate this Agreement."}}, nil
	}}
	ts := newTestServer(t, serverDeps{repo: repo, classifier: detectingClassifier()})

	resp := postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{
		UserID: "user-a", DocumentID: "doc-1", Query: "termination",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decode[analysisPayload](t, resp)
	if body.TotalDetected != 1 {
		t.Fatalf("expected 1 clause, got %d", body.TotalDetected)
	}
	got := body.Clauses[0]
	if got.Type != string(clause.Termination) || got.RiskLevel != string(clause.RiskHigh) {
		t.Errorf("unexpected clause: %+v", got)
	}
	if got.ExactQuote == "" {
		t.Error("expected the offline extractor to supply a quote")
	}
}

func TestAnalyze_AdHocText(t *testing.T) {
	ts := newTestServer(t, serverDeps{classifier: detectingClassifier()})

	resp := postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{
		UserID: "user-a",
		Text:   "This Agreement is governed by the laws of England.",
		Query:  "governing_law",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[analysisPayload](t, resp)
	if body.TotalDetected != 1 || body.Clauses[0].Type != string(clause.GoverningLaw) {
		t.Errorf("unexpected analysis: %+v", body)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	ts := newTestServer(t, serverDeps{classifier: detectingClassifier()})

	resp := postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{UserID: "user-a"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("neither document_id nor text: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{
		UserID: "user-a", DocumentID: "doc-1", Text: "also text",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("both document_id and text: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{
		UserID: "user-a", Text: "text", Query: "termination AND",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed query: expected 400, got %d", resp.StatusCode)
	}
}

func TestAnalyze_ClassifierOffline(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp := postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{
		UserID: "user-a", Text: "Some contract text.", Query: "termination",
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != codeProviderUnavailable {
		t.Errorf("expected %s, got %s", codeProviderUnavailable, body.Code)
	}
}

func TestAnalyze_DocumentNotFound(t *testing.T) {
	repo := &mockChunkRepo{listChunksFn: func(_ context.Context, _, _ string) ([]domain.Chunk, error) {
		return nil, domain.ErrDocumentNotFound
	}}
	ts := newTestServer(t, serverDeps{repo: repo, classifier: detectingClassifier()})

	resp := postJSON(t, ts.URL+"/v1/analyze", analyzeRequest{UserID: "user-a", DocumentID: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[healthResponse](t, resp)
	if body.Status != "ok" || body.Checks["store"] != "ok" {
		t.Errorf("unexpected health report: %+v", body)
	}
}

func TestHealthCheck_StoreDown(t *testing.T) {
	ts := newTestServer(t, serverDeps{pingErr: context.DeadlineExceeded})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

type stubBudgetReader struct {
	dailyLimit, dailyUsed, remainingDaily int64
}

func (s *stubBudgetReader) DailyLimit() int64       { return s.dailyLimit }
func (s *stubBudgetReader) MonthlyLimit() int64     { return 0 }
func (s *stubBudgetReader) DailyUsed() int64        { return s.dailyUsed }
func (s *stubBudgetReader) MonthlyUsed() int64      { return 0 }
func (s *stubBudgetReader) RemainingDaily() int64   { return s.remainingDaily }
func (s *stubBudgetReader) RemainingMonthly() int64 { return -1 }

func TestUsage(t *testing.T) {
	ts := newTestServer(t, serverDeps{
		budget: &stubBudgetReader{dailyLimit: 1000, dailyUsed: 400, remainingDaily: 600},
	})

	resp, err := http.Get(ts.URL + "/v1/usage")
	if err != nil {
		t.Fatalf("GET /v1/usage: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decode[usageResponse](t, resp)
	if body.Period != "day" {
		t.Errorf("expected default period day, got %q", body.Period)
	}
	if body.TokensUsed != 400 || body.TokenLimit != 1000 || body.TokensRemaining != 600 {
		t.Errorf("unexpected counters: %+v", body)
	}
	if body.Exhausted {
		t.Error("budget with headroom must not be exhausted")
	}
}

func TestUsage_InvalidPeriod(t *testing.T) {
	ts := newTestServer(t, serverDeps{})

	resp, err := http.Get(ts.URL + "/v1/usage?period=year")
	if err != nil {
		t.Fatalf("GET /v1/usage: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearch_QuotaExceeded(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", domain.ErrEmbeddingQuotaExceeded)
	}}
	ts := newTestServer(t, serverDeps{embedder: embedder})

	resp := postJSON(t, ts.URL+"/v1/search", searchRequest{UserID: "user-a", Query: "indemnity"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != codeQuotaExceeded {
		t.Errorf("expected %s, got %s", codeQuotaExceeded, body.Code)
	}
}
