package lexrag

import (
	"context"
	"fmt"
	"time"

	"github.com/atrium-law/lexrag/internal/domain/clause"
)

// ClauseFinding is one detected clause with its risk assessment and the
// exact quote that triggered the detection.
type ClauseFinding struct {
	Type            string
	TypeLabel       string
	Score           float64
	RiskLevel       string // "high", "medium", "low"
	RiskConfidence  float64
	IsMutual        bool
	ChunkIndex      int
	ExactQuote      string
	QuoteConfidence float64
	QuoteStart      int
	QuoteEnd        int
}

// AnalysisReport aggregates clause findings for one document or text.
// Clauses are sorted by risk (high first), then by descending score.
type AnalysisReport struct {
	Clauses       []ClauseFinding
	TotalDetected int
	HighRiskCount int
}

// AnalyzeDocument runs clause analysis over a stored document's chunks.
// clauseQuery selects clause types with IQL; empty scans all built-in
// types. threshold <= 0 uses the client default.
func (c *Client) AnalyzeDocument(
	ctx context.Context, userID, docID, clauseQuery string, threshold float64,
) (_ AnalysisReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_document", start, err) }()

	res, err := c.analyzeSvc.AnalyzeDocument(ctx, userID, docID, clauseQuery, threshold)
	if err != nil {
		return AnalysisReport{}, fmt.Errorf("analyze document: %w", err)
	}
	return *fromInternalAnalysis(&res), nil
}

// AnalyzeText runs clause analysis over ad hoc text without indexing it.
func (c *Client) AnalyzeText(
	ctx context.Context, text, clauseQuery string, threshold float64,
) (_ AnalysisReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_text", start, err) }()

	res, err := c.analyzeSvc.AnalyzeText(ctx, text, clauseQuery, threshold)
	if err != nil {
		return AnalysisReport{}, fmt.Errorf("analyze text: %w", err)
	}
	return *fromInternalAnalysis(&res), nil
}

func fromInternalAnalysis(res *clause.AnalysisResult) *AnalysisReport {
	if res == nil {
		return nil
	}
	findings := make([]ClauseFinding, len(res.Clauses))
	for i, cl := range res.Clauses {
		findings[i] = ClauseFinding{
			Type:            string(cl.Type),
			TypeLabel:       cl.TypeLabel,
			Score:           cl.IQLScore,
			RiskLevel:       string(cl.RiskLevel),
			RiskConfidence:  cl.RiskConfidence,
			IsMutual:        cl.IsMutual,
			ChunkIndex:      cl.ChunkIndex,
			ExactQuote:      cl.ExactQuote,
			QuoteConfidence: cl.QuoteConfidence,
			QuoteStart:      cl.QuoteStart,
			QuoteEnd:        cl.QuoteEnd,
		}
	}
	return &AnalysisReport{
		Clauses:       findings,
		TotalDetected: res.TotalDetected,
		HighRiskCount: res.HighRiskCount,
	}
}
