package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  drivechat config

  # Show config file paths
  drivechat config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Global config: %s\n", config.GlobalConfigPath())
		fmt.Printf("Local config:  .drivechatrc.yaml (searched from cwd upward)\n")
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		return nil
	}

	// Show current configuration
	cfg := config.Get()

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Drive:"))
	fmt.Printf("  Snapshot Name: %s\n", cfg.Drive.SnapshotName)
	if cfg.Drive.AccessToken != "" {
		fmt.Printf("  Access Token: (set)\n")
	} else {
		fmt.Printf("  Access Token: (not set; export GOOGLE_OAUTH_TOKEN)\n")
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.LLM.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.LLM.OpenAI.Model)
	fmt.Printf("  Anthropic Model: %s\n", cfg.LLM.Anthropic.Model)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Sync:"))
	fmt.Printf("  Batch Size: %d\n", cfg.Sync.BatchSize)
	fmt.Printf("  Batch Delay: %d ms\n", cfg.Sync.BatchDelayMS)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Retrieval:"))
	fmt.Printf("  Max Results: %d\n", cfg.Retrieval.MaxResults)
	fmt.Printf("  Min Score: %.2f\n", cfg.Retrieval.MinScore)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Ignore Patterns:"))
	fmt.Printf("  %d patterns configured\n", len(cfg.Ignore))

	return nil
}
