// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrCapabilityFailed  = errors.New("CAPABILITY_FAILED")
	ErrCapabilityTimeout = errors.New("CAPABILITY_TIMEOUT")
)

// Strategy names accepted by the decompose operation.
const (
	StrategyDecomposition = "query_decomposition"
	StrategyStepBack      = "step_back"
)

// Config holds the capability API settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the generative capability API. The pipeline stages consume
// it through narrow per-stage interfaces so a deterministic implementation can
// substitute in tests.
type Client struct {
	config *Config
	client *http.Client
}

func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Decompose splits a question into sub-question strings using the named
// strategy. The list may be empty; callers own the fallback.
func (c *Client) Decompose(ctx context.Context, question, strategy string) ([]string, error) {
	var resp struct {
		SubQuestions []string `json:"subQuestions"`
	}
	body := map[string]interface{}{
		"question": question,
		"strategy": strategy,
	}
	if err := c.post(ctx, "/api/ai/decompose", body, &resp); err != nil {
		return nil, err
	}
	return resp.SubQuestions, nil
}

// ClassifySources returns the data-source names the capability considers
// relevant for one sub-question. Names are wire strings; callers map them onto
// the closed source enum.
func (c *Client) ClassifySources(ctx context.Context, question string) ([]string, error) {
	var resp struct {
		DataSources []string `json:"dataSources"`
	}
	body := map[string]interface{}{
		"question": question,
	}
	if err := c.post(ctx, "/api/ai/classify-sources", body, &resp); err != nil {
		return nil, err
	}
	return resp.DataSources, nil
}

// GenerateQuery turns a sub-question plus a schema description into one SQL
// query string. An empty result means the capability found no structured-table
// grounding.
func (c *Client) GenerateQuery(ctx context.Context, question, schemaDescription string) (string, error) {
	var resp struct {
		Query string `json:"query"`
	}
	body := map[string]interface{}{
		"question": question,
		"schema":   schemaDescription,
	}
	if err := c.post(ctx, "/api/ai/generate-query", body, &resp); err != nil {
		return "", err
	}
	return resp.Query, nil
}

// GenerateAnswer produces the final grounded answer text from the composed
// prompt.
func (c *Client) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	body := map[string]interface{}{
		"prompt": prompt,
	}
	if err := c.post(ctx, "/api/ai/generate", body, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapabilityFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Apply exponential backoff for retries
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ErrCapabilityTimeout
			}
			req, err = http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewBuffer(payload))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCapabilityFailed, err)
			}
			req.Header.Set("Content-Type", "application/json")
			if c.config.APIKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
			}
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return ErrCapabilityTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrCapabilityTimeout
		}
		return fmt.Errorf("%w: %v", ErrCapabilityFailed, lastErr)
	}

	if resp == nil {
		return fmt.Errorf("%w: no successful response after retries", ErrCapabilityFailed)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode error: %v", ErrCapabilityFailed, err)
	}
	return nil
}
