package chi

import (
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

// Error codes returned to clients.
const (
	codeBadRequest          = "bad_request"
	codeValidationFailed    = "validation_failed"
	codeForbidden           = "forbidden"
	codeDocumentNotFound    = "document_not_found"
	codeQuotaExceeded       = "quota_exceeded"
	codeProviderError       = "provider_error"
	codeProviderUnavailable = "provider_unavailable"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ingestRequest struct {
	UserID   string `json:"user_id"`
	MatterID string `json:"matter_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text"`
}

type ingestResponse struct {
	DocumentID     string `json:"document_id"`
	Chunks         int    `json:"chunks"`
	EmbeddedChunks int    `json:"embedded_chunks"`
}

type reembedResponse struct {
	DocumentID string `json:"document_id"`
	Embedded   int    `json:"embedded"`
}

type searchRequest struct {
	UserID         string `json:"user_id"`
	MatterID       string `json:"matter_id,omitempty"`
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	MaxCitations   int    `json:"max_citations,omitempty"`
	AnalyzeClauses bool   `json:"analyze_clauses,omitempty"`
}

type searchResponse struct {
	Results   []searchResultItem `json:"results"`
	Citations *citationsPayload  `json:"citations,omitempty"`
	Analysis  *analysisPayload   `json:"clause_analysis,omitempty"`
	Context   string             `json:"context"`
}

type searchResultItem struct {
	ID           string            `json:"id"`
	DocumentID   string            `json:"document_id"`
	DocumentName string            `json:"document_name"`
	ChunkIndex   int               `json:"chunk_index"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Similarity   float64           `json:"similarity"`
	RerankScore  *float64          `json:"rerank_score,omitempty"`
}

type citationsPayload struct {
	Verified bool           `json:"verified"`
	Items    []citationItem `json:"items"`
}

type citationItem struct {
	DocumentName   string  `json:"document_name"`
	ChunkID        string  `json:"chunk_id"`
	ChunkIndex     int     `json:"chunk_index"`
	ExactQuote     string  `json:"exact_quote"`
	StartChar      int     `json:"start_char"`
	EndChar        int     `json:"end_char"`
	Confidence     float64 `json:"confidence"`
	RelevanceScore float64 `json:"relevance_score"`
}

type analyzeRequest struct {
	UserID     string  `json:"user_id"`
	DocumentID string  `json:"document_id,omitempty"`
	Text       string  `json:"text,omitempty"`
	Query      string  `json:"query,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

type analysisPayload struct {
	Clauses       []clauseItem `json:"clauses"`
	TotalDetected int          `json:"total_detected"`
	HighRiskCount int          `json:"high_risk_count"`
}

type clauseItem struct {
	Type            string  `json:"type"`
	TypeLabel       string  `json:"type_label"`
	IQLScore        float64 `json:"iql_score"`
	RiskLevel       string  `json:"risk_level"`
	RiskConfidence  float64 `json:"risk_confidence"`
	IsMutual        bool    `json:"is_mutual"`
	ChunkIndex      int     `json:"chunk_index"`
	ExactQuote      string  `json:"exact_quote,omitempty"`
	QuoteConfidence float64 `json:"quote_confidence,omitempty"`
	QuoteStart      int     `json:"quote_start,omitempty"`
	QuoteEnd        int     `json:"quote_end,omitempty"`
}

type usageResponse struct {
	Period          string `json:"period"`
	WindowStart     string `json:"window_start"`
	WindowEnd       string `json:"window_end"`
	TokensUsed      int64  `json:"tokens_used"`
	TokenLimit      int64  `json:"token_limit"`
	TokensRemaining int64  `json:"tokens_remaining"`
	Exhausted       bool   `json:"exhausted"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultToItem(r *search.Result) searchResultItem {
	return searchResultItem{
		ID:           r.ID,
		DocumentID:   r.DocumentID,
		DocumentName: r.DocumentName,
		ChunkIndex:   r.ChunkIndex,
		Content:      r.Content,
		Metadata:     r.Metadata,
		Similarity:   r.Similarity,
		RerankScore:  r.RerankScore,
	}
}

func citationsToPayload(set domain.CitationSet) *citationsPayload {
	if len(set.Citations) == 0 {
		return nil
	}
	items := make([]citationItem, len(set.Citations))
	for i, c := range set.Citations {
		items[i] = citationItem{
			DocumentName:   c.DocumentName,
			ChunkID:        c.ChunkID,
			ChunkIndex:     c.ChunkIndex,
			ExactQuote:     c.ExactQuote,
			StartChar:      c.StartChar,
			EndChar:        c.EndChar,
			Confidence:     c.Confidence,
			RelevanceScore: c.RelevanceScore,
		}
	}
	return &citationsPayload{Verified: set.Verified, Items: items}
}

func analysisToPayload(res *clause.AnalysisResult) *analysisPayload {
	if res == nil {
		return nil
	}
	items := make([]clauseItem, len(res.Clauses))
	for i, c := range res.Clauses {
		items[i] = clauseItem{
			Type:            string(c.Type),
			TypeLabel:       c.TypeLabel,
			IQLScore:        c.IQLScore,
			RiskLevel:       string(c.RiskLevel),
			RiskConfidence:  c.RiskConfidence,
			IsMutual:        c.IsMutual,
			ChunkIndex:      c.ChunkIndex,
			ExactQuote:      c.ExactQuote,
			QuoteConfidence: c.QuoteConfidence,
			QuoteStart:      c.QuoteStart,
			QuoteEnd:        c.QuoteEnd,
		}
	}
	return &analysisPayload{
		Clauses:       items,
		TotalDetected: res.TotalDetected,
		HighRiskCount: res.HighRiskCount,
	}
}
