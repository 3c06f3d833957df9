/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package llm provides completion clients for the inference providers
// the agent can talk to (Anthropic or Ollama). SQL generation calls
// run at near-zero temperature; conversational summaries use a
// moderate one.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Request is a single completion call
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is a completion client for one inference provider
type Client interface {
	// Complete sends the prompt and returns the raw model text
	Complete(ctx context.Context, req Request) (string, error)

	// ModelName returns the model identifier in use
	ModelName() string

	// ProviderName returns the provider identifier ("anthropic", "ollama")
	ProviderName() string
}

// Config holds inference provider settings
type Config struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

const defaultMaxTokens = 2048

// NewClient creates a completion client for the configured provider
func NewClient(config Config) (Client, error) {
	switch config.Provider {
	case "anthropic":
		if config.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com/v1"
		}
		return &anthropicClient{
			apiKey:  config.APIKey,
			baseURL: baseURL,
			model:   config.Model,
			client:  &http.Client{Timeout: 120 * time.Second},
		}, nil

	case "ollama":
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if config.Model == "" {
			return nil, fmt.Errorf("ollama provider requires a model name")
		}
		return &ollamaClient{
			baseURL: baseURL,
			model:   config.Model,
			client:  &http.Client{Timeout: 120 * time.Second},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported inference provider: %s (supported: anthropic, ollama)", config.Provider)
	}
}
