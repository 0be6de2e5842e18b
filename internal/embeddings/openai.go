package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIService implements the embedding backend using the OpenAI API.
type OpenAIService struct {
	client openai.Client
	model  string

	// mu guards dimensions, which concurrent Embed calls correct from the
	// first real result.
	mu         sync.Mutex
	dimensions int
}

// NewOpenAIService creates a new OpenAI embedding backend.
func NewOpenAIService(apiKey, model, baseURL string, dimensions int) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	if dimensions == 0 {
		dimensions = GetModelDimensions(model)
		if dimensions == 0 {
			// Default for unknown models
			dimensions = 1536
			log.Debug("Unknown model dimensions, defaulting", "model", model, "dimensions", dimensions)
		}
	}

	return &OpenAIService{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed generates an embedding for document text.
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, Usage, error) {
	log.Debug("Requesting embedding from OpenAI", "model", s.model)

	resp, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, Usage{}, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, Usage{}, fmt.Errorf("no embedding returned")
	}

	// API returns float64; vectors are stored as float32.
	embedding := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		embedding[i] = float32(v)
	}

	s.setDimensions(len(embedding))

	return embedding, Usage{Tokens: int(resp.Usage.PromptTokens)}, nil
}

// EmbedQuery generates an embedding for query text.
// OpenAI doesn't use task prefixes, so this is the same as Embed.
func (s *OpenAIService) EmbedQuery(ctx context.Context, text string) ([]float32, Usage, error) {
	return s.Embed(ctx, text)
}

// Dimensions returns the embedding dimensions.
func (s *OpenAIService) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimensions
}

// setDimensions records the dimension observed on a real result.
func (s *OpenAIService) setDimensions(n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.dimensions = n
	s.mu.Unlock()
}

// Provider returns the provider name.
func (s *OpenAIService) Provider() Provider {
	return ProviderOpenAI
}

// ModelName returns the model name.
func (s *OpenAIService) ModelName() string {
	return s.model
}
