// Package assemble merges ranked results, citations, and clause analysis
// into the context handed to the downstream prompt builder. Building is pure
// and synchronous; missing citations or analysis simply drop their sections.
package assemble

import (
	"fmt"
	"math"
	"strings"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

// Section headers locate each block for the prompt builder.
const (
	citationsHeader = "VERIFIED CITATIONS:"
	clausesHeader   = "CLAUSE ANALYSIS:"
)

// blockDelimiter separates per-document excerpts.
const blockDelimiter = "\n---\n"

// Context is the assembled prompt context plus the structured side channel
// the API layer exposes alongside it.
type Context struct {
	Text      string
	Results   []search.Result
	Citations domain.CitationSet
	Analysis  *clause.AnalysisResult
}

// Build renders one excerpt block per ranked result, prefixed with the
// citation and clause sections when present.
func Build(results []search.Result, citations domain.CitationSet, analysis *clause.AnalysisResult) Context {
	var b strings.Builder

	if len(citations.Citations) > 0 {
		writeCitations(&b, citations)
		b.WriteString("\n")
	}
	if analysis != nil && analysis.TotalDetected > 0 {
		writeClauses(&b, analysis)
		b.WriteString("\n")
	}

	blocks := make([]string, 0, len(results))
	for i, res := range results {
		blocks = append(blocks, fmt.Sprintf("[Document %d: %s (relevance: %d%%)]\n%s",
			i+1, res.DocumentName, percent(res.Relevance()), res.Content))
	}
	b.WriteString(strings.Join(blocks, blockDelimiter))

	return Context{
		Text:      b.String(),
		Results:   results,
		Citations: citations,
		Analysis:  analysis,
	}
}

func writeCitations(b *strings.Builder, set domain.CitationSet) {
	b.WriteString(citationsHeader)
	if !set.Verified {
		b.WriteString(" (heuristic, unverified)")
	}
	b.WriteString("\n")
	for i, c := range set.Citations {
		fmt.Fprintf(b, "%d. %q — %s, chunk %d (confidence: %d%%)\n",
			i+1, c.ExactQuote, c.DocumentName, c.ChunkIndex, percent(c.Confidence))
	}
}

func writeClauses(b *strings.Builder, analysis *clause.AnalysisResult) {
	b.WriteString(clausesHeader)
	fmt.Fprintf(b, " %d clause(s) detected, %d high risk\n",
		analysis.TotalDetected, analysis.HighRiskCount)
	for _, c := range analysis.Clauses {
		fmt.Fprintf(b, "- [%s] %s (score: %d%%", strings.ToUpper(string(c.RiskLevel)),
			c.TypeLabel, percent(c.IQLScore))
		if !c.IsMutual {
			b.WriteString(", unilateral")
		}
		b.WriteString(")")
		if c.ExactQuote != "" {
			fmt.Fprintf(b, ": %q", c.ExactQuote)
		}
		b.WriteString("\n")
	}
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}
