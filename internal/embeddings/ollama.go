package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Task prefixes for specific models
var taskPrefixes = map[string]struct {
	document string
	query    string
}{
	"nomic-embed-text": {
		document: "search_document: ",
		query:    "search_query: ",
	},
	"mxbai-embed-large": {
		document: "", // No prefix for documents
		query:    "Represent this sentence for searching relevant passages: ",
	},
}

// OllamaService implements the embedding backend using Ollama.
type OllamaService struct {
	baseURL string
	model   string
	client  *http.Client

	// mu guards dimensions: Embed is called from concurrent batch workers
	// and corrects the dimension from the first real result.
	mu         sync.Mutex
	dimensions int
}

// ollamaEmbedRequest is the request body for the Ollama embed API.
type ollamaEmbedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate,omitempty"`
}

// ollamaEmbedResponse is the response from the Ollama embed API.
type ollamaEmbedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewOllamaService creates a new Ollama embedding backend.
func NewOllamaService(baseURL, model string) (*OllamaService, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	dimensions := GetModelDimensions(model)
	if dimensions == 0 {
		// Default to 768 if unknown, corrected on first embed
		dimensions = 768
		log.Debug("Unknown model dimensions, defaulting", "model", model, "dimensions", dimensions)
	}

	return &OllamaService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for document text.
func (s *OllamaService) Embed(ctx context.Context, text string) ([]float32, Usage, error) {
	return s.embedText(ctx, s.applyPrefix(text, false))
}

// EmbedQuery generates an embedding for query text.
func (s *OllamaService) EmbedQuery(ctx context.Context, text string) ([]float32, Usage, error) {
	return s.embedText(ctx, s.applyPrefix(text, true))
}

// Dimensions returns the embedding dimensions.
func (s *OllamaService) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimensions
}

// setDimensions records the dimension observed on a real result.
func (s *OllamaService) setDimensions(n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.dimensions = n
	s.mu.Unlock()
}

// Provider returns the provider name.
func (s *OllamaService) Provider() Provider {
	return ProviderOllama
}

// ModelName returns the model name.
func (s *OllamaService) ModelName() string {
	return s.model
}

// applyPrefix applies the appropriate task prefix for the model.
func (s *OllamaService) applyPrefix(text string, isQuery bool) string {
	prefixes, ok := taskPrefixes[s.model]
	if !ok {
		return text
	}

	if isQuery {
		return prefixes.query + text
	}
	return prefixes.document + text
}

// embedText performs the actual embedding request.
func (s *OllamaService) embedText(ctx context.Context, text string) ([]float32, Usage, error) {
	reqBody := ollamaEmbedRequest{
		Model:    s.model,
		Input:    []string{text},
		Truncate: true,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("Requesting embedding from Ollama", "model", s.model)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, Usage{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, Usage{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, Usage{}, fmt.Errorf("no embedding returned")
	}

	s.setDimensions(len(result.Embeddings[0]))

	return result.Embeddings[0], Usage{Tokens: result.PromptEvalCount}, nil
}
