// Package chi exposes the HTTP API: document ingest, retrieval-augmented
// search with citations, and clause analysis.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/logger"
	"github.com/atrium-law/lexrag/internal/usecase/analyze"
	"github.com/atrium-law/lexrag/internal/usecase/assemble"
	"github.com/atrium-law/lexrag/internal/usecase/citation"
	healthuc "github.com/atrium-law/lexrag/internal/usecase/health"
	"github.com/atrium-law/lexrag/internal/usecase/ingest"
	"github.com/atrium-law/lexrag/internal/usecase/retrieval"
	"github.com/atrium-law/lexrag/internal/usecase/usage"
)

const defaultMaxCitations = 5

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the API handlers.
type Server struct {
	ingest        *ingest.Service
	retrieval     *retrieval.Service
	citations     *citation.Service
	analysis      *analyze.Service
	usage         *usage.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxCitations  int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingestSvc *ingest.Service,
	retrievalSvc *retrieval.Service,
	citationSvc *citation.Service,
	analyzeSvc *analyze.Service,
	usageSvc *usage.Service,
	healthSvc *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:       ingestSvc,
		retrieval:    retrievalSvc,
		citations:    citationSvc,
		analysis:     analyzeSvc,
		usage:        usageSvc,
		health:       healthSvc,
		logger:       logger,
		maxCitations: defaultMaxCitations,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnauthorized, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable, codeProviderUnavailable),
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// WithMaxCitations overrides the default citation cap applied when a search
// request does not supply one.
func (s *Server) WithMaxCitations(n int) *Server {
	if n > 0 {
		s.maxCitations = n
	}
	return s
}

// Routes mounts all API routes.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r gochi.Router) {
		r.Post("/documents", s.IngestDocument)
		r.Post("/documents/{documentID}/reembed", s.ReembedDocument)
		r.Delete("/documents/{documentID}", s.DeleteDocument)
		r.Post("/search", s.Search)
		r.Post("/analyze", s.Analyze)
		r.Get("/usage", s.Usage)
	})
}

// IngestDocument handles POST /v1/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "user_id is required")
		return
	}

	result, err := s.ingest.Ingest(r.Context(), req.UserID, req.MatterID, req.Name, req.Text)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{
		DocumentID:     result.DocumentID,
		Chunks:         result.Chunks,
		EmbeddedChunks: result.EmbeddedChunks,
	})
}

// ReembedDocument handles POST /v1/documents/{documentID}/reembed.
func (s *Server) ReembedDocument(w http.ResponseWriter, r *http.Request) {
	docID := gochi.URLParam(r, "documentID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "user_id query parameter is required")
		return
	}

	embedded, err := s.ingest.Reembed(r.Context(), userID, docID)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, reembedResponse{DocumentID: docID, Embedded: embedded})
}

// DeleteDocument handles DELETE /v1/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := gochi.URLParam(r, "documentID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "user_id query parameter is required")
		return
	}

	if err := s.ingest.Delete(r.Context(), userID, docID); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /v1/search: retrieval, citations, optional clause
// analysis, and the assembled context.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	scope, err := search.NewScope(req.UserID, req.MatterID, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	results, err := s.retrieval.Search(ctx, req.Query, scope, req.TopK)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	maxCitations := req.MaxCitations
	if maxCitations <= 0 {
		maxCitations = s.maxCitations
	}
	citations := s.citations.Extract(ctx, req.Query, results, maxCitations)

	var analysis *clause.AnalysisResult
	if req.AnalyzeClauses && len(results) > 0 {
		analysis = s.analyzeResults(ctx, results)
	}

	assembled := assemble.Build(results, citations, analysis)

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results:   items,
		Citations: citationsToPayload(citations),
		Analysis:  analysisToPayload(analysis),
		Context:   assembled.Text,
	})
}

// analyzeResults runs the default clause scan over retrieved chunks. Analysis
// never fails a search; on error the section is simply absent.
func (s *Server) analyzeResults(ctx context.Context, results []search.Result) *clause.AnalysisResult {
	chunks := make([]domain.Chunk, len(results))
	for i := range results {
		chunks[i] = domain.Chunk{Index: results[i].ChunkIndex, Content: results[i].Content}
	}

	res, err := s.analysis.Analyze(ctx, chunks, "", 0)
	if err != nil {
		log := logger.FromContext(ctx)
		if errors.Is(err, domain.ErrProviderUnavailable) {
			log.Debug("Clause analysis skipped, classifier not configured")
		} else {
			log.Warn("Clause analysis failed, omitting section", zap.Error(err))
		}
		return nil
	}
	return &res
}

// Analyze handles POST /v1/analyze for a stored document or ad hoc text.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "user_id is required")
		return
	}

	var (
		result clause.AnalysisResult
		err    error
	)
	switch {
	case req.DocumentID != "" && req.Text != "":
		writeError(w, http.StatusBadRequest, codeValidationFailed, "provide document_id or text, not both")
		return
	case req.DocumentID != "":
		result, err = s.analysis.AnalyzeDocument(r.Context(), req.UserID, req.DocumentID, req.Query, req.Threshold)
	case req.Text != "":
		result, err = s.analysis.AnalyzeText(r.Context(), req.Text, req.Query, req.Threshold)
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document_id or text is required")
		return
	}
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, *analysisToPayload(&result))
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, err := usage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	report := s.usage.GetReport(r.Context(), period)

	writeJSON(w, http.StatusOK, usageResponse{
		Period:          string(report.Period),
		WindowStart:     report.WindowStart.Format(time.RFC3339),
		WindowEnd:       report.WindowEnd.Format(time.RFC3339),
		TokensUsed:      report.TokensUsed,
		TokenLimit:      report.TokenLimit,
		TokensRemaining: report.TokensRemaining,
		Exhausted:       report.Exhausted,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyDocument,
		domain.ErrInvalidQuery,
		domain.ErrUnauthorized,
		domain.ErrDocumentNotFound,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrProviderUnavailable,
		domain.ErrProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.FromContext(ctx).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
