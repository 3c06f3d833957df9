/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pgedge-nlsql/internal/logging"
)

const (
	// VoyageHTTPTimeout is the HTTP client timeout for Voyage AI API requests
	VoyageHTTPTimeout = 30 * time.Second
)

// VoyageProvider implements embedding generation using Voyage AI's API
type VoyageProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// voyageEmbeddingRequest represents a request to Voyage AI's embeddings API
type voyageEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// voyageEmbeddingResponse represents a response from Voyage AI's embeddings API
type voyageEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Model dimensions for Voyage AI embedding models
var voyageModelDimensions = map[string]int{
	"voyage-3":      1024,
	"voyage-3-lite": 512,
	"voyage-2":      1024,
	"voyage-2-lite": 1024,
}

// NewVoyageProvider creates a new Voyage AI embedding provider
func NewVoyageProvider(apiKey, model string) (*VoyageProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Voyage AI API key cannot be empty")
	}

	// Default to voyage-3-lite if no model specified
	if model == "" {
		model = "voyage-3-lite"
	}

	// Validate model is supported
	if _, ok := voyageModelDimensions[model]; !ok {
		return nil, fmt.Errorf("unsupported Voyage AI model: %s (supported: voyage-3, voyage-3-lite, voyage-2, voyage-2-lite)", model)
	}

	logging.Debug("embedding provider initialized",
		"provider", "voyage", "model", model, "api_key", maskKey(apiKey))

	return &VoyageProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.voyageai.com/v1/embeddings",
		client: &http.Client{
			Timeout: VoyageHTTPTimeout,
		},
	}, nil
}

// Embed generates an embedding vector for the given text
func (p *VoyageProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	startTime := time.Now()

	reqBody := voyageEmbeddingRequest{
		Model: p.model,
		Input: text,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Error("embedding request failed",
			"provider", "voyage", "url", p.baseURL, "error", err.Error())
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("Voyage API request failed with status %d (error reading response body: %w)", resp.StatusCode, readErr)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			logging.Warn("embedding rate limited",
				"provider", "voyage", "model", p.model)
		}
		return nil, fmt.Errorf("Voyage API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var embResp voyageEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from Voyage AI")
	}

	embedding := embResp.Data[0].Embedding

	logging.Debug("embedding generated",
		"provider", "voyage", "model", p.model,
		"text_len", len(text), "dimensions", len(embedding),
		"duration_ms", time.Since(startTime).Milliseconds())

	return toFloat32(embedding), nil
}

// Dimensions returns the number of dimensions for this model
func (p *VoyageProvider) Dimensions() int {
	return voyageModelDimensions[p.model]
}

// ModelName returns the model name
func (p *VoyageProvider) ModelName() string {
	return p.model
}

// ProviderName returns "voyage"
func (p *VoyageProvider) ProviderName() string {
	return "voyage"
}
