package inference

import (
	"context"
	"fmt"
	"sort"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Reranker is a cross-encoder reranking client (Cohere/Jina-compatible
// /rerank endpoint).
type Reranker struct {
	c *client
}

// NewReranker creates a rerank client.
func NewReranker(cfg *Config) *Reranker {
	return &Reranker{c: newClient(cfg)}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank implements domain.Reranker.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]domain.RankedItem, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	req := rerankRequest{
		Model:     r.c.model,
		Query:     query,
		Documents: documents,
		TopN:      topK,
	}

	var resp rerankResponse
	if err := r.c.postJSON(ctx, "rerank", "/rerank", req, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.RankedItem, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range: %w",
				res.Index, domain.ErrProviderError)
		}
		items = append(items, domain.RankedItem{Index: res.Index, Score: res.RelevanceScore})
	}

	// The contract is strictly descending regardless of provider ordering.
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}
	return items, nil
}
