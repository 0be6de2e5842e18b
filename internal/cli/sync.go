package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/syncer"
	"github.com/drivechat/drivechat/internal/ui"
)

var (
	syncForce      bool
	syncDryRun     bool
	syncBatchSize  int
	syncBatchDelay int
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Drive files into the embedding snapshot",
	Long: `Sync the embedding snapshot with your Google Drive.

This command will:
1. List the embeddable files in your Drive
2. Diff them against the snapshot by modification time
3. Embed new and changed files in batches
4. Write the merged snapshot back to your Drive

Only changed files are re-embedded, so repeated syncs over a mostly
unchanged Drive are cheap.

Examples:
  # Incremental sync
  drivechat sync

  # Re-embed everything
  drivechat sync --force

  # Preview what would be embedded
  drivechat sync --dry-run`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "re-embed all files regardless of modification time")
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "d", false, "preview without embedding")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "files embedded concurrently per batch")
	syncCmd.Flags().IntVar(&syncBatchDelay, "batch-delay", -1, "milliseconds to pause between batches")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	opts := syncer.DefaultOptions()
	if cfg.Sync.BatchSize > 0 {
		opts.BatchSize = cfg.Sync.BatchSize
	}
	if cfg.Sync.BatchDelayMS >= 0 {
		opts.BatchDelay = time.Duration(cfg.Sync.BatchDelayMS) * time.Millisecond
	}
	if syncBatchSize > 0 {
		opts.BatchSize = syncBatchSize
	}
	if syncBatchDelay >= 0 {
		opts.BatchDelay = time.Duration(syncBatchDelay) * time.Millisecond
	}
	opts.Force = syncForce

	log.Debug("Starting sync",
		"force", opts.Force,
		"batchSize", opts.BatchSize,
		"batchDelay", opts.BatchDelay,
		"dry-run", syncDryRun,
	)

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newDriveClient(ctx, cfg)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	orch := syncer.New(client, gen, opts)

	// Dry run mode - just show the delta
	if syncDryRun {
		return runSyncDryRun(ctx, orch)
	}

	fmt.Println(ui.Header.Render("Syncing Drive"))
	fmt.Printf("Provider: %s (%s)\n", cfg.Embeddings.Provider, gen.ModelName())
	fmt.Println()

	startTime := time.Now()

	var bar *progressbar.ProgressBar
	failed := 0

	for event := range orch.Run(ctx) {
		switch event.Type {
		case syncer.EventStart:
			fmt.Printf("Remote files: %d | To embed: %d | Existing records: %d\n",
				event.Start.TotalRemoteFiles,
				event.Start.ToEmbed,
				event.Start.Existing,
			)
			if event.Start.ToEmbed > 0 {
				bar = progressbar.NewOptions(event.Start.ToEmbed,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
					progressbar.OptionClearOnFinish(),
				)
			}

		case syncer.EventProgress:
			if event.Progress.Status == syncer.ProgressError {
				failed++
				if bar != nil {
					_ = bar.Clear()
				}
				fmt.Printf("%s %s: %v\n",
					ui.Warning.Render("skipped"),
					event.Progress.FileName,
					event.Progress.Err,
				)
			}
			if bar != nil {
				_ = bar.Add(1)
			}

		case syncer.EventComplete:
			if bar != nil {
				_ = bar.Finish()
			}
			duration := time.Since(startTime).Round(time.Millisecond)
			fmt.Println(ui.Success.Render("Sync complete!"))
			fmt.Println()
			fmt.Printf("  Embedded:  %d\n", event.Complete.Processed)
			fmt.Printf("  Preserved: %d\n", event.Complete.Preserved)
			if failed > 0 {
				fmt.Printf("  Skipped:   %d\n", failed)
			}
			fmt.Printf("  Records:   %d\n", event.Complete.TotalRecords)
			fmt.Printf("  Duration:  %s\n", duration)

		case syncer.EventError:
			if bar != nil {
				_ = bar.Clear()
			}
			if ctx.Err() != nil {
				fmt.Println(ui.Warning.Render("Sync cancelled"))
				return nil
			}
			return fmt.Errorf("sync failed: %w", event.Err)
		}
	}

	return nil
}

// runSyncDryRun shows the delta without embedding anything.
func runSyncDryRun(ctx context.Context, orch *syncer.Orchestrator) error {
	fmt.Println(ui.Header.Render("Dry Run - Preview"))
	fmt.Println()

	plan, err := orch.Plan(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute sync plan: %w", err)
	}

	fmt.Printf("Remote files:   %d\n", plan.TotalRemoteFiles)
	fmt.Printf("To embed:       %d\n", len(plan.ToEmbed))
	fmt.Printf("Preserved:      %d\n", plan.Preserved)
	if !plan.SnapshotExists {
		fmt.Println(ui.Dim.Render("No snapshot yet; this would be the first sync."))
	}

	if len(plan.ToEmbed) > 0 {
		fmt.Println("\nFiles to embed:")
		for i, f := range plan.ToEmbed {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(plan.ToEmbed)-10)
				break
			}
			fmt.Printf("  %s (%s)\n", f.Name, f.MimeType)
		}
	}

	return nil
}
