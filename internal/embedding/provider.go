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
	"context"
	"fmt"
)

// Provider defines the interface for embedding generation. The same
// provider (model and version) must be used for indexing and querying,
// otherwise similarity scores between the two are meaningless.
type Provider interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embedding vector
	Dimensions() int

	// ModelName returns the name of the model being used
	ModelName() string

	// ProviderName returns the name of the provider (e.g., "voyage", "ollama", "openai")
	ProviderName() string
}

// Config holds configuration for embedding providers
type Config struct {
	Provider string `yaml:"provider"` // "voyage", "ollama", or "openai"
	Model    string `yaml:"model"`    // Model name (provider-specific)

	// Voyage AI-specific
	VoyageAPIKey string `yaml:"voyage_api_key"`

	// OpenAI-specific
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// Ollama-specific
	OllamaURL string `yaml:"ollama_url"`
}

// NewProvider creates a new embedding provider based on configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "voyage":
		if cfg.VoyageAPIKey == "" {
			return nil, fmt.Errorf("Voyage AI API key is required when provider is 'voyage'")
		}
		return NewVoyageProvider(cfg.VoyageAPIKey, cfg.Model)

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required when provider is 'openai'")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model)

	case "ollama":
		if cfg.OllamaURL == "" {
			cfg.OllamaURL = "http://localhost:11434" // Default
		}
		if cfg.Model == "" {
			cfg.Model = "nomic-embed-text" // Default model
		}
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model)

	case "local":
		// Offline hashing embedder, for smoke tests only
		return NewLocalProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: voyage, openai, ollama, local)", cfg.Provider)
	}
}

// maskKey redacts an API key for logging, keeping only the first and
// last few characters.
func maskKey(apiKey string) string {
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	}
	return "(redacted)"
}

// toFloat32 narrows an API float64 vector to the float32 form stored
// in the similarity index.
func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
