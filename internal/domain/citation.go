package domain

import "strings"

// VerifiedCitation is a quoted span extracted from a retrieved chunk in
// answer to a query. ExactQuote is always a contiguous substring of
// FullContext; Grounded enforces the invariant.
type VerifiedCitation struct {
	DocumentName   string
	ChunkID        string
	ChunkIndex     int
	ExactQuote     string
	StartChar      int
	EndChar        int
	Confidence     float64
	RelevanceScore float64
	FullContext    string
}

// Grounded reports whether the quote is literally present in its source
// chunk at the recorded offsets, or anywhere in it when offsets are unset.
func (c *VerifiedCitation) Grounded() bool {
	if c.ExactQuote == "" {
		return false
	}
	if c.StartChar >= 0 && c.EndChar <= len(c.FullContext) && c.StartChar < c.EndChar {
		if c.FullContext[c.StartChar:c.EndChar] == c.ExactQuote {
			return true
		}
	}
	return strings.Contains(c.FullContext, c.ExactQuote)
}

// CitationSet is the outcome of citation extraction across the top results.
// Verified is false when the extractive-QA provider was unavailable and the
// deterministic first-sentence fallback produced the quotes.
type CitationSet struct {
	Citations []VerifiedCitation
	Verified  bool
}
