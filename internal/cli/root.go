// Package cli implements the command-line interface for drivechat.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/drive"
	"github.com/drivechat/drivechat/internal/embeddings"
	"github.com/drivechat/drivechat/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drivechat [question]",
	Short: "Chat with your Google Drive files",
	Long: `drivechat embeds the files in your Google Drive and lets you ask
questions about them in natural language.

Embeddings are kept in a snapshot file stored in your Drive alongside
your documents, so syncs are incremental: only files that changed since
the last sync are re-embedded.

Examples:
  # Sync Drive files into the embedding snapshot
  drivechat sync

  # Ask a question about your documents
  drivechat "what did the Q3 planning doc decide?"

  # Ask without generating an answer (matches only)
  drivechat ask "hiring plan" --no-answer`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}

		// Otherwise, treat the args as a question
		return runAsk(cmd, args)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging based on debug flag
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}

		// Load configuration
		if err := config.Load(cfgFile); err != nil {
			log.Warn("Failed to load config", "error", err)
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize UI styles and logger
	ui.InitLogger()

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/drivechat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Bind flags to viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drivechat %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	return ctx, cancel
}

// newDriveClient builds the Drive client from configuration.
func newDriveClient(ctx context.Context, cfg *config.Config) (*drive.Client, error) {
	if cfg.Drive.AccessToken == "" {
		return nil, fmt.Errorf("no Drive access token configured; set GOOGLE_OAUTH_TOKEN or drive.access_token")
	}

	client, err := drive.New(ctx, drive.Options{
		AccessToken:    cfg.Drive.AccessToken,
		SnapshotName:   cfg.Drive.SnapshotName,
		IgnorePatterns: cfg.Ignore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return client, nil
}

// newGenerator builds the embedding generator from configuration.
func newGenerator(cfg *config.Config) (*embeddings.Generator, error) {
	svc, err := embeddings.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	return embeddings.NewGenerator(svc), nil
}
