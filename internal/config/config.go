// Package config handles configuration loading and validation for drivechat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete drivechat configuration.
type Config struct {
	Drive      DriveConfig      `mapstructure:"drive"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Ignore     []string         `mapstructure:"ignore"`
}

// DriveConfig configures Google Drive access.
type DriveConfig struct {
	AccessToken  string `mapstructure:"access_token"`
	SnapshotName string `mapstructure:"snapshot_name"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider string            `mapstructure:"provider"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI   OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// SyncConfig tunes the synchronization pass.
type SyncConfig struct {
	BatchSize    int `mapstructure:"batch_size"`
	BatchDelayMS int `mapstructure:"batch_delay_ms"`
}

// RetrievalConfig tunes question answering.
type RetrievalConfig struct {
	MaxResults int     `mapstructure:"max_results"`
	MinScore   float64 `mapstructure:"min_score"`
}

// LLMConfig configures the LLM service for answering questions.
type LLMConfig struct {
	Provider  string          `mapstructure:"provider"`
	Ollama    OllamaLLMConfig `mapstructure:"ollama"`
	OpenAI    OpenAILLMConfig `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaLLMConfig configures Ollama LLM.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAILLMConfig configures OpenAI LLM.
type OpenAILLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AnthropicConfig configures Anthropic LLM.
type AnthropicConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			SnapshotName: DefaultSnapshotName,
		},
		Embeddings: EmbeddingsConfig{
			Provider: DefaultEmbeddingProvider,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Ollama: OllamaLLMConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaLLMModel,
			},
			OpenAI: OpenAILLMConfig{
				Model: DefaultOpenAILLMModel,
			},
			Anthropic: AnthropicConfig{
				Model: DefaultAnthropicModel,
			},
		},
		Sync: SyncConfig{
			BatchSize:    DefaultSyncBatchSize,
			BatchDelayMS: DefaultSyncBatchDelayMS,
		},
		Retrieval: RetrievalConfig{
			MaxResults: DefaultRetrievalMaxResults,
			MinScore:   DefaultRetrievalMinScore,
		},
		Ignore: nil,
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	// Set defaults
	setDefaults()

	// Set config file if specified
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		// Also check for .drivechatrc.yaml in current directory and parents
		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	// Environment variables
	viper.SetEnvPrefix("DRIVECHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	// Unmarshal into config struct
	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	// Load credentials from environment if not in config
	loadCredentialsFromEnv()

	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	// Drive
	viper.SetDefault("drive.snapshot_name", DefaultSnapshotName)

	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	// Sync
	viper.SetDefault("sync.batch_size", DefaultSyncBatchSize)
	viper.SetDefault("sync.batch_delay_ms", DefaultSyncBatchDelayMS)

	// Retrieval
	viper.SetDefault("retrieval.max_results", DefaultRetrievalMaxResults)
	viper.SetDefault("retrieval.min_score", DefaultRetrievalMinScore)

	// LLM
	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.ollama.url", DefaultOllamaURL)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)
	viper.SetDefault("llm.openai.model", DefaultOpenAILLMModel)
	viper.SetDefault("llm.anthropic.model", DefaultAnthropicModel)
}

// findRCFile searches for .drivechatrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, ".drivechatrc.yaml")
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// loadCredentialsFromEnv loads tokens and API keys from environment
// variables if not already set.
func loadCredentialsFromEnv() {
	// Drive OAuth token
	if cfg.Drive.AccessToken == "" {
		if tok := os.Getenv("GOOGLE_OAUTH_TOKEN"); tok != "" {
			cfg.Drive.AccessToken = tok
		}
	}

	// OpenAI API key
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.OpenAI.APIKey = key
		}
	}

	// Anthropic API key
	if cfg.LLM.Anthropic.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.Anthropic.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
