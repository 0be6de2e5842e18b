package config

import (
	"os"
	"path/filepath"
)

// Default configuration values
const (
	// Drive defaults
	DefaultSnapshotName = "drivechat-embeddings.json"

	// Embedding defaults
	DefaultEmbeddingProvider = "openai"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"

	// LLM defaults
	DefaultLLMProvider    = "openai"
	DefaultOllamaLLMModel = "llama3"
	DefaultOpenAILLMModel = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-haiku-20240307"

	// Sync defaults
	DefaultSyncBatchSize    = 5
	DefaultSyncBatchDelayMS = 1000

	// Retrieval defaults
	DefaultRetrievalMaxResults = 5
	DefaultRetrievalMinScore   = 0.5
)

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/drivechat"
	}
	return filepath.Join(home, ".config", "drivechat")
}
