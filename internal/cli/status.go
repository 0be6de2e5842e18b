package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show snapshot status and statistics",
	Long: `Display information about the embedding snapshot including:
- Number of embedded documents
- Embedding model used
- When the last sync ran

Examples:
  # Show snapshot status
  drivechat status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	client, err := newDriveClient(ctx, cfg)
	if err != nil {
		return err
	}

	snapFile, err := client.FindSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up snapshot: %w", err)
	}

	fmt.Println(ui.Header.Render("Snapshot Status"))
	fmt.Println()

	if snapFile == nil {
		fmt.Println("No snapshot found.")
		fmt.Println()
		fmt.Println("Run 'drivechat sync' to create one.")
		return nil
	}

	snap, err := client.ReadSnapshot(ctx, snapFile.ID)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	fmt.Printf("%s %s\n",
		ui.Highlight.Render("Snapshot:"),
		ui.Bold.Render(snapFile.Name),
	)
	fmt.Printf("  %s %d\n",
		ui.Dim.Render("Format version:"),
		snap.FormatVersion,
	)
	fmt.Printf("  %s %s\n",
		ui.Dim.Render("Model:"),
		snap.ModelMetadata.ModelID,
	)
	fmt.Printf("  %s %d\n",
		ui.Dim.Render("Dimensions:"),
		snap.ModelMetadata.VectorDimension,
	)
	fmt.Printf("  %s %d documents (%d remote files at last sync)\n",
		ui.Dim.Render("Records:"),
		len(snap.Records),
		snap.TotalFiles,
	)
	fmt.Printf("  %s %s\n",
		ui.Dim.Render("Last sync:"),
		formatGeneratedAt(snap.GeneratedAt),
	)

	fmt.Println()
	fmt.Println(ui.Dim.Render("Configuration:"))
	fmt.Printf("  Embedding provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  LLM provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Retrieval: top %d, min score %.2f (high >= %.1f, medium >= %.1f)\n",
		cfg.Retrieval.MaxResults,
		cfg.Retrieval.MinScore,
		0.8, 0.6,
	)

	if warn := staleWarning(snap.GeneratedAt); warn != "" {
		fmt.Println()
		fmt.Println(ui.Warning.Render(warn))
	}

	return nil
}

// formatGeneratedAt formats the snapshot timestamp for display.
func formatGeneratedAt(generatedAt string) string {
	t, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		log.Debug("Unparseable snapshot timestamp", "generatedAt", generatedAt)
		return generatedAt
	}

	now := time.Now()
	local := t.Local()
	if local.Year() == now.Year() && local.YearDay() == now.YearDay() {
		return "today at " + local.Format("15:04")
	}
	if local.Year() == now.Year() {
		return local.Format("Jan 2 at 15:04")
	}
	return local.Format("Jan 2, 2006 at 15:04")
}

// staleWarning suggests a sync when the snapshot is old.
func staleWarning(generatedAt string) string {
	t, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return ""
	}
	if age := time.Since(t); age > 7*24*time.Hour {
		return fmt.Sprintf("Snapshot is %d days old; run 'drivechat sync' to refresh it.", int(age.Hours()/24))
	}
	return ""
}
