package inference

import (
	"context"
	"fmt"

	"github.com/atrium-law/lexrag/internal/domain"
)

// Classifier is a zero-shot classification client (HF zero-shot pipeline
// shape: candidate labels in, parallel label/score arrays out).
type Classifier struct {
	c *client
}

// NewClassifier creates a zero-shot classification client.
func NewClassifier(cfg *Config) *Classifier {
	return &Classifier{c: newClient(cfg)}
}

type classifyRequest struct {
	Model      string             `json:"model,omitempty"`
	Inputs     string             `json:"inputs"`
	Parameters classifyParameters `json:"parameters"`
}

type classifyParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type classifyResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classify implements domain.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) ([]domain.ScoredLabel, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	req := classifyRequest{
		Model:  c.c.model,
		Inputs: text,
		Parameters: classifyParameters{
			CandidateLabels: labels,
			MultiLabel:      true,
		},
	}

	var resp classifyResponse
	if err := c.c.postJSON(ctx, "classify", "/zero-shot-classification", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("classify response has %d labels for %d scores: %w",
			len(resp.Labels), len(resp.Scores), domain.ErrProviderError)
	}

	out := make([]domain.ScoredLabel, 0, len(resp.Labels))
	for i, label := range resp.Labels {
		out = append(out, domain.ScoredLabel{Label: label, Score: resp.Scores[i]})
	}
	return out, nil
}
