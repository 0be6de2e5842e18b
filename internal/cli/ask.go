package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drivechat/drivechat/internal/config"
	"github.com/drivechat/drivechat/internal/llm"
	"github.com/drivechat/drivechat/internal/retrieval"
	"github.com/drivechat/drivechat/internal/ui"
)

var (
	askLimit    int
	askMinScore float64
	askJSON     bool
	askNoAnswer bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your Drive documents",
	Long: `Ask a natural language question about your synced Drive documents.

The question is embedded and matched against the snapshot by vector
similarity; the best-matching documents are handed to an LLM as context
and the answer is shown with citations back to the source files.

Examples:
  # Ask a question
  drivechat ask "what was decided about hiring?"

  # Show matching documents without generating an answer
  drivechat ask "quarterly budget" --no-answer

  # Tune retrieval
  drivechat ask "launch checklist" --limit 3 --min-score 0.6

  # Machine-readable output
  drivechat ask "deadlines" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "m", 0, "maximum number of context documents")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", -1, "minimum similarity score (0-1)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output matches as JSON")
	askCmd.Flags().BoolVar(&askNoAnswer, "no-answer", false, "show matches without generating an answer")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg := config.Get()

	opts := retrieval.DefaultOptions()
	if cfg.Retrieval.MaxResults > 0 {
		opts.MaxResults = cfg.Retrieval.MaxResults
	}
	if cfg.Retrieval.MinScore > 0 {
		opts.MinScore = cfg.Retrieval.MinScore
	}
	if askLimit > 0 {
		opts.MaxResults = askLimit
	}
	if askMinScore >= 0 {
		opts.MinScore = askMinScore
	}

	log.Debug("Starting ask",
		"question", question,
		"limit", opts.MaxResults,
		"minScore", opts.MinScore,
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

	// Load the snapshot
	snapFile, err := client.FindSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up snapshot: %w", err)
	}
	if snapFile == nil {
		return fmt.Errorf("no snapshot found; run 'drivechat sync' first")
	}

	snap, err := client.ReadSnapshot(ctx, snapFile.ID)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var llmSvc llm.Service
	if !askNoAnswer && !askJSON {
		llmSvc, err = llm.NewService(cfg)
		if err != nil {
			return fmt.Errorf("failed to create LLM service: %w", err)
		}
	}

	svc := retrieval.New(gen, llmSvc, opts)

	res, err := svc.Retrieve(ctx, question, snap)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	// Output matches as JSON
	if askJSON {
		return outputMatchesJSON(res)
	}

	// Matches only
	if askNoAnswer {
		displayMatches(res)
		return nil
	}

	return streamAnswer(ctx, svc, question, res)
}

// outputMatchesJSON emits the retrieval result as JSON.
func outputMatchesJSON(res *retrieval.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Citations)
}

// displayMatches renders the ranked matches without an answer.
func displayMatches(res *retrieval.Result) {
	if len(res.Matches) == 0 {
		fmt.Println("No matching documents found.")
		return
	}

	fmt.Printf("Found %d matching documents:\n\n", res.TotalMatches)

	for i, m := range res.Matches {
		fmt.Printf("%s %s %s %s\n",
			ui.Highlight.Render(fmt.Sprintf("[%d]", i+1)),
			ui.FileName.Render(m.Record.FileName),
			ui.FormatScore(m.Score),
			ui.FormatBand(m.Band),
		)
		if m.Record.SourceLink != "" {
			fmt.Printf("    %s\n", ui.Link.Render(m.Record.SourceLink))
		}
	}

	if res.TotalMatches > len(res.Matches) {
		fmt.Println()
		fmt.Println(ui.Dim.Render(fmt.Sprintf("%d more matches above the score floor", res.TotalMatches-len(res.Matches))))
	}
}

// streamAnswer generates and renders the answer with citations.
func streamAnswer(ctx context.Context, svc *retrieval.Service, question string, res *retrieval.Result) error {
	// Spinner while the answer streams in
	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Generating answer", stopSpinner, spinnerDone)

	contentCh, errCh := svc.AnswerStream(ctx, question, res)

	var contentBuilder strings.Builder
	for content := range contentCh {
		contentBuilder.WriteString(content)
	}

	close(stopSpinner)
	<-spinnerDone

	if err := <-errCh; err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("answer generation failed: %w", err)
	}

	fmt.Println(ui.Header.Render("Answer"))
	fmt.Println()

	// Render markdown with glamour
	rendered, err := renderMarkdown(contentBuilder.String())
	if err != nil {
		// Fallback to raw output if rendering fails
		fmt.Println(contentBuilder.String())
	} else {
		fmt.Print(rendered)
	}

	// Show citations
	if len(res.Citations) > 0 {
		fmt.Println(ui.Dim.Render("Sources:"))
		for i, c := range res.Citations {
			fmt.Printf("  %s %s %s\n",
				ui.Citation.Render(fmt.Sprintf("[%d]", i+1)),
				c.FileName,
				ui.SourceRef.Render(fmt.Sprintf("(%.0f%% %s)", c.Score*100, c.Band)),
			)
			if c.SourceLink != "" {
				fmt.Printf("      %s\n", ui.Link.Render(c.SourceLink))
			}
		}
	}

	return nil
}

// showSpinner displays an animated spinner until stopCh is closed.
func showSpinner(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r%s %s", ui.Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}

// renderMarkdown renders markdown content using glamour.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}
