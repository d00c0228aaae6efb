// Package sampler talks to the external MCMC engine that fits the
// hierarchical meta-analysis model. Everything downstream of the returned
// draws is deterministic, so this client is the only nondeterministic
// dependency of a MAP analysis.
package sampler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"goprior/domain/core"
	apperrors "goprior/internal/errors"
	"goprior/ports"
)

// Client is an HTTP client for the posterior sampling engine
type Client struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a sampler client. A zero timeout falls back to five
// minutes, which covers the usual chain lengths with headroom.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		BaseURL:    baseURL,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// errorBody is the engine's JSON error envelope
type errorBody struct {
	Error string `json:"error"`
}

// Sample runs the hierarchical model on the engine and returns the posterior
// draws with diagnostics.
func (c *Client) Sample(ctx context.Context, req ports.SampleRequest) (*ports.SampleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sample request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/sample", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[Sampler] Requesting %d chains x %d iterations for %s endpoint (%d studies)",
		req.Chains, req.Iterations, req.Data.Endpoint, len(req.Data.Rows))

	start := time.Now()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ExternalServiceError("sampler", fmt.Errorf("%w: %v", core.ErrSamplerUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			return nil, fmt.Errorf("%w: status %d: %s", core.ErrSamplerResponse, resp.StatusCode, eb.Error)
		}
		return nil, fmt.Errorf("%w: status %d", core.ErrSamplerResponse, resp.StatusCode)
	}

	var result ports.SampleResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode body: %v", core.ErrSamplerResponse, err)
	}
	if len(result.Draws) == 0 {
		return nil, fmt.Errorf("%w: engine returned no draws", core.ErrSamplerResponse)
	}
	if len(result.ThetaNew) == 0 {
		// Older engine versions only report the population parameter.
		result.ThetaNew = result.Draws
	}

	log.Printf("[Sampler] Received %d draws in %v (divergences=%d, maxRhat=%.3f)",
		len(result.ThetaNew), time.Since(start).Round(time.Millisecond),
		result.Diagnostics.Divergences, result.Diagnostics.MaxRhat)

	return &result, nil
}
