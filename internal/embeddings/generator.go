package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/drivechat/drivechat/internal/extract"
	"github.com/drivechat/drivechat/internal/snapshot"
)

// ErrEmptyInput is returned when there is no text to embed.
var ErrEmptyInput = errors.New("no text to embed")

// BackendErrorPrefix is the stable prefix wrapping upstream embedding-model
// failures, so callers can tell "backend said no" from a local bug.
const BackendErrorPrefix = "embedding backend"

// Truncation budget: the embedding model's token limit times an average
// characters-per-token estimate.
const (
	maxEmbedTokens   = 8192
	avgCharsPerToken = 4
	maxEmbedChars    = maxEmbedTokens * avgCharsPerToken
)

// FileInput is one remote file queued for embedding. Content is the raw
// fetched bytes; extraction happens inside the generator.
type FileInput struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
	SourceLink   string
	Size         int64
	Content      string
}

// BatchStatus labels a batch progress notification.
type BatchStatus string

const (
	StatusProcessing BatchStatus = "processing"
	StatusCompleted  BatchStatus = "completed"
	StatusError      BatchStatus = "error"
	StatusComplete   BatchStatus = "complete"
)

// BatchProgress is one progress notification from EmbedBatch.
type BatchProgress struct {
	Current  int
	Total    int
	FileName string
	Status   BatchStatus
	Err      error
}

// ProgressFunc receives batch progress notifications.
type ProgressFunc func(BatchProgress)

// Generator converts file text into embedding records.
type Generator struct {
	svc      Service
	extract  extract.Func
	maxChars int
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithExtractor overrides the text extraction function.
func WithExtractor(fn extract.Func) GeneratorOption {
	return func(g *Generator) {
		g.extract = fn
	}
}

// WithMaxChars overrides the truncation budget.
func WithMaxChars(n int) GeneratorOption {
	return func(g *Generator) {
		g.maxChars = n
	}
}

// NewGenerator creates a Generator over the given embedding backend.
func NewGenerator(svc Service, opts ...GeneratorOption) *Generator {
	g := &Generator{
		svc:      svc,
		extract:  extract.Text,
		maxChars: maxEmbedChars,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Service returns the underlying embedding backend.
func (g *Generator) Service() Service {
	return g.svc
}

// ModelName returns the active embedding model identifier.
func (g *Generator) ModelName() string {
	return g.svc.ModelName()
}

// EmbedText embeds document text, truncating it to the model budget first,
// and reports the backend's token usage alongside the vector. Empty or
// whitespace-only text fails with ErrEmptyInput.
func (g *Generator) EmbedText(ctx context.Context, text string) ([]float32, Usage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Usage{}, ErrEmptyInput
	}

	vec, usage, err := g.svc.Embed(ctx, Truncate(text, g.maxChars))
	if err != nil {
		return nil, Usage{}, fmt.Errorf("%s: %w", BackendErrorPrefix, err)
	}
	return vec, usage, nil
}

// EmbedQuery embeds a user question.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	vec, _, err := g.svc.EmbedQuery(ctx, Truncate(text, g.maxChars))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BackendErrorPrefix, err)
	}
	return vec, nil
}

// EmbedFile extracts text from one file and embeds it, producing the
// record that replaces any prior record with the same file ID.
func (g *Generator) EmbedFile(ctx context.Context, f FileInput) (*snapshot.Record, error) {
	text := g.extract(f.MimeType, f.Content)

	vec, usage, err := g.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	log.Debug("Embedded file", "file", f.Name, "tokens", usage.Tokens)

	content := Truncate(text, g.maxChars)
	return &snapshot.Record{
		FileID:     f.ID,
		FileName:   f.Name,
		Content:    content,
		Vector:     vec,
		MimeType:   f.MimeType,
		SourceLink: f.SourceLink,
		Metadata: snapshot.RecordMetadata{
			Size:         f.Size,
			ModifiedTime: f.ModifiedTime,
			EmbeddedAt:   time.Now().UTC().Format(time.RFC3339),
			ContentHash:  fmt.Sprintf("%016x", xxhash.Sum64String(content)),
		},
	}, nil
}

// EmbedBatch embeds a sequence of files one at a time. Files with blank
// content are omitted silently. A file that fails to embed is reported via
// onProgress with StatusError and skipped; it never aborts the batch.
// Every processed file gets a StatusProcessing notification before work and
// a StatusCompleted or StatusError one after, followed by one terminal
// StatusComplete notification naming the last file.
//
// The sync orchestrator drives EmbedFile from its own batch workers instead
// of calling EmbedBatch, so it can control concurrency and pacing itself.
func (g *Generator) EmbedBatch(ctx context.Context, files []FileInput, onProgress ProgressFunc) []snapshot.Record {
	notify := func(p BatchProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	records := make([]snapshot.Record, 0, len(files))
	lastName := ""

	for i, f := range files {
		if strings.TrimSpace(f.Content) == "" {
			log.Debug("Skipping file with no content", "file", f.Name)
			continue
		}
		lastName = f.Name

		notify(BatchProgress{
			Current:  i + 1,
			Total:    len(files),
			FileName: f.Name,
			Status:   StatusProcessing,
		})

		rec, err := g.EmbedFile(ctx, f)
		if err != nil {
			log.Warn("Failed to embed file", "file", f.Name, "error", err)
			notify(BatchProgress{
				Current:  i + 1,
				Total:    len(files),
				FileName: f.Name,
				Status:   StatusError,
				Err:      err,
			})
			continue
		}

		records = append(records, *rec)
		notify(BatchProgress{
			Current:  i + 1,
			Total:    len(files),
			FileName: f.Name,
			Status:   StatusCompleted,
		})
	}

	notify(BatchProgress{
		Current:  len(files),
		Total:    len(files),
		FileName: lastName,
		Status:   StatusComplete,
	})

	return records
}

// Truncate trims text to at most maxChars characters. When a word boundary
// falls within the last 10% of the window the cut moves back to it;
// otherwise the cut lands on the hard limit.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx >= maxChars-maxChars/10 {
		return strings.TrimRight(cut[:idx], " \t\n")
	}
	return cut
}
