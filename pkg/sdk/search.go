package lexrag

import (
	"context"
	"fmt"
	"time"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/usecase/assemble"
)

// SearchRequest describes one retrieval query.
type SearchRequest struct {
	Query          string
	UserID         string // owning tenant, required
	MatterID       string // optional: restrict to one matter
	TopK           int    // 0 = client default
	MaxCitations   int    // 0 = client default
	AnalyzeClauses bool   // run clause risk analysis over the hits
}

// SearchResult is a single retrieval hit: one chunk scored against the
// query. RerankScore is set only when the cross-encoder pass succeeded.
type SearchResult struct {
	ID           string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Content      string
	Metadata     map[string]string
	Similarity   float64
	RerankScore  *float64
}

// Citation is an exact quote grounded in an indexed chunk.
type Citation struct {
	DocumentName   string
	ChunkID        string
	ChunkIndex     int
	ExactQuote     string
	StartChar      int
	EndChar        int
	Confidence     float64
	RelevanceScore float64
}

// CitationSet groups citations for one query. Verified is false when
// the offline heuristic extractor produced the quotes.
type CitationSet struct {
	Citations []Citation
	Verified  bool
}

// SearchResponse carries ranked results, supporting citations, optional
// clause analysis, and the assembled prompt context.
type SearchResponse struct {
	Results   []SearchResult
	Citations CitationSet
	Analysis  *AnalysisReport
	Context   string
}

// Search embeds the query, retrieves and reranks matching chunks, and
// extracts supporting citations. Clause analysis runs only when
// requested and never fails the search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (_ SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	scope, err := search.NewScope(req.UserID, req.MatterID, "")
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	results, err := c.retrievalSvc.Search(ctx, req.Query, scope, req.TopK)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}

	maxCitations := req.MaxCitations
	if maxCitations <= 0 {
		maxCitations = c.maxCitations
	}
	citations := c.citationSvc.Extract(ctx, req.Query, results, maxCitations)

	var analysis *clause.AnalysisResult
	if req.AnalyzeClauses && len(results) > 0 {
		chunks := make([]domain.Chunk, len(results))
		for i := range results {
			chunks[i] = domain.Chunk{Index: results[i].ChunkIndex, Content: results[i].Content}
		}
		if res, aerr := c.analyzeSvc.Analyze(ctx, chunks, "", 0); aerr == nil {
			analysis = &res
		}
		// Analysis failure degrades the response, never the search.
	}

	assembled := assemble.Build(results, citations, analysis)

	out := make([]SearchResult, len(results))
	for i := range results {
		out[i] = fromInternalResult(&results[i])
	}

	return SearchResponse{
		Results:   out,
		Citations: fromInternalCitations(citations),
		Analysis:  fromInternalAnalysis(analysis),
		Context:   assembled.Text,
	}, nil
}

func fromInternalResult(r *search.Result) SearchResult {
	return SearchResult{
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

func fromInternalCitations(set domain.CitationSet) CitationSet {
	items := make([]Citation, len(set.Citations))
	for i, cit := range set.Citations {
		items[i] = Citation{
			DocumentName:   cit.DocumentName,
			ChunkID:        cit.ChunkID,
			ChunkIndex:     cit.ChunkIndex,
			ExactQuote:     cit.ExactQuote,
			StartChar:      cit.StartChar,
			EndChar:        cit.EndChar,
			Confidence:     cit.Confidence,
			RelevanceScore: cit.RelevanceScore,
		}
	}
	return CitationSet{Citations: items, Verified: set.Verified}
}
