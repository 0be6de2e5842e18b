// Package retrieval answers questions over the embedding snapshot: it
// embeds the question, ranks snapshot records by similarity, and feeds
// the best matches to an LLM as grounding context.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/drivechat/drivechat/internal/llm"
	"github.com/drivechat/drivechat/internal/search"
	"github.com/drivechat/drivechat/internal/snapshot"
)

// QueryEmbedder embeds a question into the snapshot's vector space.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options configures retrieval and answer generation.
type Options struct {
	// MaxResults caps how many matches become context documents.
	MaxResults int

	// MinScore filters matches below this similarity score.
	MinScore float64

	// Temperature controls answer creativity (0-1).
	Temperature float64

	// MaxTokens limits the answer length.
	MaxTokens int
}

// DefaultOptions returns the standard retrieval tuning.
func DefaultOptions() Options {
	return Options{
		MaxResults:  5,
		MinScore:    0.5,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

// Citation points the user at one source document behind an answer.
type Citation struct {
	FileID     string      `json:"fileId"`
	FileName   string      `json:"fileName"`
	SourceLink string      `json:"sourceLink,omitempty"`
	Score      float64     `json:"score"`
	Band       search.Band `json:"band"`
}

// Result is the retrieval outcome for one question.
type Result struct {
	// Matches is ordered most similar first, already limited and filtered.
	Matches []search.Match `json:"matches"`

	// TotalMatches counts matches above the score floor before limiting.
	TotalMatches int `json:"totalMatches"`

	// Citations mirror Matches in order, one per source document.
	Citations []Citation `json:"citations"`
}

// Service retrieves relevant documents and generates grounded answers.
type Service struct {
	embedder QueryEmbedder
	llm      llm.Service
	opts     Options
}

// New creates a retrieval service. The llm service may be nil when only
// Retrieve is used.
func New(embedder QueryEmbedder, llmSvc llm.Service, opts Options) *Service {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	return &Service{
		embedder: embedder,
		llm:      llmSvc,
		opts:     opts,
	}
}

// Retrieve embeds the question and ranks the snapshot's records against
// it. A failure to embed the question is fatal: there is no degraded
// retrieval without a query vector.
func (s *Service) Retrieve(ctx context.Context, question string, snap *snapshot.Snapshot) (*Result, error) {
	queryVec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	var records []snapshot.Record
	if snap != nil {
		records = snap.Records
	}

	results := search.Search(records, queryVec, search.Options{
		Limit:    s.opts.MaxResults,
		MinScore: s.opts.MinScore,
	})
	log.Debug("Ranked snapshot records",
		"records", len(records),
		"matches", results.TotalMatches,
		"returned", len(results.Matches),
		"elapsed", results.Elapsed,
	)

	citations := make([]Citation, 0, len(results.Matches))
	for _, m := range results.Matches {
		citations = append(citations, Citation{
			FileID:     m.Record.FileID,
			FileName:   m.Record.FileName,
			SourceLink: m.Record.SourceLink,
			Score:      m.Score,
			Band:       m.Band,
		})
	}

	return &Result{
		Matches:      results.Matches,
		TotalMatches: results.TotalMatches,
		Citations:    citations,
	}, nil
}

// noMatchAnswer is returned when retrieval finds nothing relevant.
const noMatchAnswer = "I couldn't find any relevant documents to answer your question. Try rephrasing it, or run a sync to pick up recent changes."

// Answer generates a grounded answer for the question using the given
// retrieval result as context.
func (s *Service) Answer(ctx context.Context, question string, res *Result) (string, error) {
	if len(res.Matches) == 0 {
		return noMatchAnswer, nil
	}

	answer, err := s.llm.Complete(ctx, buildMessages(question, res.Matches), llm.CompletionOptions{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", llm.BackendErrorPrefix, err)
	}

	return answer, nil
}

// AnswerStream generates a streaming grounded answer. Backend failures
// arrive on the error channel wrapped the same way Answer wraps them.
func (s *Service) AnswerStream(ctx context.Context, question string, res *Result) (<-chan string, <-chan error) {
	if len(res.Matches) == 0 {
		contentCh := make(chan string, 1)
		errCh := make(chan error, 1)
		contentCh <- noMatchAnswer
		close(contentCh)
		close(errCh)
		return contentCh, errCh
	}

	contentCh, rawErrCh := s.llm.CompleteStream(ctx, buildMessages(question, res.Matches), llm.CompletionOptions{
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Stream:      true,
	})

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for err := range rawErrCh {
			errCh <- fmt.Errorf("%s: %w", llm.BackendErrorPrefix, err)
		}
	}()

	return contentCh, errCh
}

// buildMessages assembles the chat prompt from the question and the
// retrieved documents.
func buildMessages(question string, matches []search.Match) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\n%s", question, buildContext(matches))},
	}
}

// buildContext creates the context block from retrieved documents.
func buildContext(matches []search.Match) string {
	var sb strings.Builder

	sb.WriteString("Here are the relevant documents:\n\n")

	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("--- Source [%d]: %s (%.0f%% match) ---\n",
			i+1, m.Record.FileName, m.Score*100))
		sb.WriteString(m.Record.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// System prompt for document Q&A.
const systemPrompt = `You are a helpful assistant that answers questions about the user's documents.

Your role is to:
1. Read the provided document excerpts carefully
2. Answer the user's question accurately based on those documents
3. Name the specific document when citing information from it
4. Be concise but thorough
5. If the documents don't contain enough information to answer, say so

When referencing documents:
- Use [Source N] notation to cite specific sources
- Mention the document name when relevant
- Quote short passages when helpful

Format your answer in markdown when appropriate.`
