// Package embeddings turns extracted document text into vectors.
package embeddings

import (
	"context"
	"fmt"

	"github.com/drivechat/drivechat/internal/config"
)

// Provider represents an embedding provider type.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// Usage reports the token consumption of one embedding call. Tokens is 0
// when the backend does not report usage.
type Usage struct {
	Tokens int
}

// Service defines the interface for embedding backends.
type Service interface {
	// Embed generates an embedding for document text.
	Embed(ctx context.Context, text string) ([]float32, Usage, error)

	// EmbedQuery generates an embedding for a query (may use a different
	// task prefix).
	EmbedQuery(ctx context.Context, text string) ([]float32, Usage, error)

	// Dimensions returns the embedding dimensions for this model.
	Dimensions() int

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// Known model dimensions
var modelDimensions = map[string]int{
	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates an embedding backend based on the configuration.
func NewService(cfg *config.Config) (Service, error) {
	switch cfg.Embeddings.Provider {
	case "ollama":
		return NewOllamaService(
			cfg.Embeddings.Ollama.URL,
			cfg.Embeddings.Ollama.Model,
		)
	case "openai":
		return NewOpenAIService(
			cfg.Embeddings.OpenAI.APIKey,
			cfg.Embeddings.OpenAI.Model,
			cfg.Embeddings.OpenAI.BaseURL,
			cfg.Embeddings.OpenAI.Dimensions,
		)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}
}
