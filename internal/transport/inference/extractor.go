package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Extractor is an extractive question-answering client (HF
// question-answering pipeline shape).
type Extractor struct {
	c *client
}

// NewExtractor creates an extractive QA client.
func NewExtractor(cfg *Config) *Extractor {
	return &Extractor{c: newClient(cfg)}
}

type extractRequest struct {
	Model    string `json:"model,omitempty"`
	Question string `json:"question"`
	Context  string `json:"context"`
}

type extractAnswer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Extract implements domain.Extractor. The endpoint returns the best span;
// some deployments return a list, both shapes are accepted.
func (e *Extractor) Extract(ctx context.Context, question, passage string) ([]domain.Span, error) {
	req := extractRequest{
		Model:    e.c.model,
		Question: question,
		Context:  passage,
	}

	var body json.RawMessage
	if err := e.c.postJSON(ctx, "extract", "/question-answering", req, &body); err != nil {
		return nil, err
	}

	var raw []extractAnswer
	if err := json.Unmarshal(body, &raw); err != nil {
		var single extractAnswer
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("decode extract response: %w", domain.ErrProviderError)
		}
		raw = []extractAnswer{single}
	}

	spans := make([]domain.Span, 0, len(raw))
	for _, a := range raw {
		if a.Answer == "" {
			continue
		}
		spans = append(spans, domain.Span{
			Answer:    a.Answer,
			StartChar: a.Start,
			EndChar:   a.End,
			Score:     a.Score,
		})
	}
	return spans, nil
}
