// Package inference holds thin JSON-over-HTTP clients for the reranking and
// analysis endpoints (cross-encoder rerank, extractive QA, zero-shot
// classification). Every provider error wraps domain.ErrProviderError so the
// transport layer maps it to 502.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/metrics"
)

// Config holds shared settings for one inference endpoint.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Provider string
	Logger   *zap.Logger
}

// client is the shared HTTP plumbing behind the three provider clients.
type client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	model    string
	provider string
	logger   *zap.Logger
}

func newClient(cfg *Config) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// postJSON sends a JSON request and decodes the JSON response, recording
// per-operation metrics. operation is one of rerank, extract, classify.
func (c *client) postJSON(ctx context.Context, operation, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()

	resp, err := c.http.Do(req)

	duration := time.Since(start)

	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(c.provider, c.model, operation, "error").Inc()
		metrics.InferenceErrorsTotal.WithLabelValues(c.provider, c.model, operation, "transport").Inc()
		return fmt.Errorf("%s request failed: %w", operation, domain.ErrProviderError)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.InferenceRequestsTotal.WithLabelValues(c.provider, c.model, operation, "error").Inc()
		metrics.InferenceErrorsTotal.WithLabelValues(c.provider, c.model, operation, "api_error").Inc()
		return parseAPIError(operation, resp)
	}

	metrics.InferenceRequestsTotal.WithLabelValues(c.provider, c.model, operation, "success").Inc()
	metrics.InferenceRequestDuration.WithLabelValues(c.provider, c.model, operation).Observe(duration.Seconds())

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		metrics.InferenceErrorsTotal.WithLabelValues(c.provider, c.model, operation, "decode").Inc()
		return fmt.Errorf("decode %s response: %w", operation, domain.ErrProviderError)
	}
	return nil
}

// parseAPIError extracts a human-readable error from a non-200 response.
func parseAPIError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	detail := ""
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Detail != "" {
			detail = parsed.Detail
		} else if parsed.Error != "" {
			detail = parsed.Error
		}
	}
	if detail == "" {
		detail = string(body)
	}

	return fmt.Errorf("%s API error %d: %s: %w",
		operation, resp.StatusCode, detail, domain.ErrProviderError)
}
