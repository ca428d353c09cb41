package lexrag

import (
	"context"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
	healthuc "github.com/atrium-law/lexrag/internal/usecase/health"
	"github.com/atrium-law/lexrag/internal/usecase/ingest"
	usageuc "github.com/atrium-law/lexrag/internal/usecase/usage"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn  func(ctx context.Context, userID, matterID, name, text string) (ingest.Result, error)
	reembedFn func(ctx context.Context, userID, docID string) (int, error)
	deleteFn  func(ctx context.Context, userID, docID string) error
}

func (m *mockIngestUC) Ingest(
	ctx context.Context, userID, matterID, name, text string,
) (ingest.Result, error) {
	return m.ingestFn(ctx, userID, matterID, name, text)
}

func (m *mockIngestUC) Reembed(ctx context.Context, userID, docID string) (int, error) {
	return m.reembedFn(ctx, userID, docID)
}

func (m *mockIngestUC) Delete(ctx context.Context, userID, docID string) error {
	return m.deleteFn(ctx, userID, docID)
}

// --- retrievalUseCase mock ---

type mockRetrievalUC struct {
	searchFn func(ctx context.Context, query string, scope search.Scope, topK int) ([]search.Result, error)
}

func (m *mockRetrievalUC) Search(
	ctx context.Context, query string, scope search.Scope, topK int,
) ([]search.Result, error) {
	return m.searchFn(ctx, query, scope, topK)
}

// --- citationUseCase mock ---

type mockCitationUC struct {
	extractFn func(ctx context.Context, query string, results []search.Result, maxCitations int) domain.CitationSet
}

func (m *mockCitationUC) Extract(
	ctx context.Context, query string, results []search.Result, maxCitations int,
) domain.CitationSet {
	if m.extractFn == nil {
		return domain.CitationSet{}
	}
	return m.extractFn(ctx, query, results, maxCitations)
}

// --- analyzeUseCase mock ---

type mockAnalyzeUC struct {
	analyzeFn  func(ctx context.Context, chunks []domain.Chunk, querySpec string, threshold float64) (clause.AnalysisResult, error)
	documentFn func(ctx context.Context, userID, docID, querySpec string, threshold float64) (clause.AnalysisResult, error)
	textFn     func(ctx context.Context, text, querySpec string, threshold float64) (clause.AnalysisResult, error)
}

func (m *mockAnalyzeUC) Analyze(
	ctx context.Context, chunks []domain.Chunk, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	return m.analyzeFn(ctx, chunks, querySpec, threshold)
}

func (m *mockAnalyzeUC) AnalyzeDocument(
	ctx context.Context, userID, docID, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	return m.documentFn(ctx, userID, docID, querySpec, threshold)
}

func (m *mockAnalyzeUC) AnalyzeText(
	ctx context.Context, text, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	return m.textFn(ctx, text, querySpec, threshold)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	reportFn func(ctx context.Context, period usageuc.Period) usageuc.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period usageuc.Period) usageuc.Report {
	return m.reportFn(ctx, period)
}

// --- helpers ---

func testClient(
	ingestSvc ingestUseCase,
	retrievalSvc retrievalUseCase,
	citationSvc citationUseCase,
	analyzeSvc analyzeUseCase,
) *Client {
	return &Client{
		ingestSvc:    ingestSvc,
		retrievalSvc: retrievalSvc,
		citationSvc:  citationSvc,
		analyzeSvc:   analyzeSvc,
		maxCitations: 5,
	}
}
