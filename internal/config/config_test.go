package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	// Drive defaults
	assert.Equal(t, DefaultSnapshotName, cfg.Drive.SnapshotName)
	assert.Empty(t, cfg.Drive.AccessToken)

	// Embeddings defaults
	assert.Equal(t, DefaultEmbeddingProvider, cfg.Embeddings.Provider)
	assert.Equal(t, DefaultOllamaURL, cfg.Embeddings.Ollama.URL)
	assert.Equal(t, DefaultOllamaEmbedModel, cfg.Embeddings.Ollama.Model)
	assert.Equal(t, DefaultOpenAIEmbedModel, cfg.Embeddings.OpenAI.Model)

	// LLM defaults
	assert.Equal(t, DefaultLLMProvider, cfg.LLM.Provider)
	assert.Equal(t, DefaultOllamaLLMModel, cfg.LLM.Ollama.Model)
	assert.Equal(t, DefaultOpenAILLMModel, cfg.LLM.OpenAI.Model)
	assert.Equal(t, DefaultAnthropicModel, cfg.LLM.Anthropic.Model)

	// Sync defaults
	assert.Equal(t, DefaultSyncBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, DefaultSyncBatchDelayMS, cfg.Sync.BatchDelayMS)

	// Retrieval defaults
	assert.Equal(t, DefaultRetrievalMaxResults, cfg.Retrieval.MaxResults)
	assert.Equal(t, DefaultRetrievalMinScore, cfg.Retrieval.MinScore)
}

func TestLoadWithConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
drive:
  snapshot_name: custom-store.json
embeddings:
  provider: openai
  openai:
    model: text-embedding-3-large
    base_url: https://custom-api.example.com
sync:
  batch_size: 10
  batch_delay_ms: 250
retrieval:
  max_results: 3
  min_score: 0.65
llm:
  provider: anthropic
  anthropic:
    model: claude-3-opus-20240229
ignore:
  - "*.log"
  - "scratch-*"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Load the config
	err = Load(configPath)
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify loaded values
	assert.Equal(t, "custom-store.json", loadedCfg.Drive.SnapshotName)
	assert.Equal(t, "openai", loadedCfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-3-large", loadedCfg.Embeddings.OpenAI.Model)
	assert.Equal(t, "https://custom-api.example.com", loadedCfg.Embeddings.OpenAI.BaseURL)
	assert.Equal(t, 10, loadedCfg.Sync.BatchSize)
	assert.Equal(t, 250, loadedCfg.Sync.BatchDelayMS)
	assert.Equal(t, 3, loadedCfg.Retrieval.MaxResults)
	assert.Equal(t, 0.65, loadedCfg.Retrieval.MinScore)
	assert.Equal(t, "anthropic", loadedCfg.LLM.Provider)
	assert.Equal(t, "claude-3-opus-20240229", loadedCfg.LLM.Anthropic.Model)
	assert.Contains(t, loadedCfg.Ignore, "scratch-*")
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Set environment variables
	t.Setenv("DRIVECHAT_EMBEDDINGS_PROVIDER", "ollama")
	t.Setenv("DRIVECHAT_LLM_PROVIDER", "anthropic")
	t.Setenv("GOOGLE_OAUTH_TOKEN", "test-oauth-token")
	t.Setenv("OPENAI_API_KEY", "test-api-key")
	t.Setenv("ANTHROPIC_API_KEY", "test-anthropic-key")

	// Load without a config file
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Verify environment variables are loaded
	assert.Equal(t, "ollama", loadedCfg.Embeddings.Provider)
	assert.Equal(t, "anthropic", loadedCfg.LLM.Provider)
	assert.Equal(t, "test-oauth-token", loadedCfg.Drive.AccessToken)
	assert.Equal(t, "test-api-key", loadedCfg.Embeddings.OpenAI.APIKey)
	assert.Equal(t, "test-api-key", loadedCfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "test-anthropic-key", loadedCfg.LLM.Anthropic.APIKey)
}

func TestLoadMissingConfigFile(t *testing.T) {
	// Reset viper and global config
	viper.Reset()
	cfg = nil

	// Load with no config file - should not error, just use defaults
	err := Load("")
	require.NoError(t, err)

	loadedCfg := Get()

	// Should have default values
	assert.Equal(t, DefaultEmbeddingProvider, loadedCfg.Embeddings.Provider)
	assert.Equal(t, DefaultLLMProvider, loadedCfg.LLM.Provider)
	assert.Equal(t, DefaultSnapshotName, loadedCfg.Drive.SnapshotName)
}

func TestGet(t *testing.T) {
	// Reset global config
	cfg = nil

	// First call should return default config
	c1 := Get()
	assert.NotNil(t, c1)

	// Subsequent call should return same instance
	c2 := Get()
	assert.Same(t, c1, c2)
}

func TestGlobalConfigPath(t *testing.T) {
	path := GlobalConfigPath()
	assert.Contains(t, path, "drivechat")
	assert.Contains(t, path, "config.yaml")
}
