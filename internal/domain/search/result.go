package search

// Result is a single retrieval hit: one chunk scored against the query.
// Similarity is the coarse vector score in [0,1]; RerankScore is set only
// when the cross-encoder pass succeeded and is the authoritative ordering.
type Result struct {
	ID           string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Content      string
	Metadata     map[string]string
	Similarity   float64
	RerankScore  *float64
}

// WithRerankScore returns a copy with the rerank score set.
func (r Result) WithRerankScore(score float64) Result {
	r.RerankScore = &score
	return r
}

// Relevance returns the authoritative relevance: rerank score when present,
// vector similarity otherwise.
func (r Result) Relevance() float64 {
	if r.RerankScore != nil {
		return *r.RerankScore
	}
	return r.Similarity
}
