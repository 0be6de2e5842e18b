package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivechat/drivechat/internal/config"
)

// TestNewService tests the factory function.
func TestNewService(t *testing.T) {
	t.Run("creates Ollama service", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "ollama",
				Ollama: config.OllamaLLMConfig{
					URL:   "http://localhost:11434",
					Model: "llama3",
				},
			},
		}

		svc, err := NewService(cfg)
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, svc.Provider())
		assert.Equal(t, "llama3", svc.ModelName())
	})

	t.Run("creates OpenAI service", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "openai",
				OpenAI: config.OpenAILLMConfig{
					APIKey: "sk-test",
					Model:  "gpt-4o-mini",
				},
			},
		}

		svc, err := NewService(cfg)
		require.NoError(t, err)
		assert.Equal(t, ProviderOpenAI, svc.Provider())
		assert.Equal(t, "gpt-4o-mini", svc.ModelName())
	})

	t.Run("creates Anthropic service", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "anthropic",
				Anthropic: config.AnthropicConfig{
					APIKey: "sk-ant-test",
					Model:  "claude-3-sonnet",
				},
			},
		}

		svc, err := NewService(cfg)
		require.NoError(t, err)
		assert.Equal(t, ProviderAnthropic, svc.Provider())
		assert.Equal(t, "claude-3-sonnet", svc.ModelName())
	})

	t.Run("returns error for unsupported provider", func(t *testing.T) {
		cfg := &config.Config{
			LLM: config.LLMConfig{
				Provider: "unsupported",
			},
		}

		_, err := NewService(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}

// TestNewOllamaService tests Ollama service creation.
func TestNewOllamaService(t *testing.T) {
	t.Run("with default URL", func(t *testing.T) {
		svc, err := NewOllamaService("", "llama3")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:11434", svc.baseURL)
		assert.Equal(t, "llama3", svc.model)
	})

	t.Run("with custom URL", func(t *testing.T) {
		svc, err := NewOllamaService("http://custom:8080/", "mistral")
		require.NoError(t, err)
		assert.Equal(t, "http://custom:8080", svc.baseURL)
	})
}

// TestNewOpenAIService tests OpenAI service creation.
func TestNewOpenAIService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewOpenAIService("", "gpt-4o-mini", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("with valid API key", func(t *testing.T) {
		svc, err := NewOpenAIService("sk-test", "gpt-4o-mini", "")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", svc.model)
	})
}

// TestNewAnthropicService tests Anthropic service creation.
func TestNewAnthropicService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewAnthropicService("", "claude-3")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("with valid API key", func(t *testing.T) {
		svc, err := NewAnthropicService("sk-ant-test", "claude-3")
		require.NoError(t, err)
		assert.Equal(t, "claude-3", svc.model)
	})
}

// mockOllamaServer creates a test server that simulates Ollama's chat API.
func mockOllamaServer(t *testing.T, response string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var req ollamaChatRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		resp := ollamaChatResponse{
			Message: ollamaMessage{
				Role:    "assistant",
				Content: response,
			},
			Done: true,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// TestOllamaComplete tests Ollama completion.
func TestOllamaComplete(t *testing.T) {
	server := mockOllamaServer(t, "Hello! How can I help you?")
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3")
	require.NoError(t, err)

	messages := []Message{
		{Role: "user", Content: "Hello"},
	}

	response, err := svc.Complete(context.Background(), messages, DefaultCompletionOptions())
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", response)
}

// TestOllamaCompleteError tests error handling.
func TestOllamaCompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not found"))
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), []Message{{Role: "user", Content: "test"}}, DefaultCompletionOptions())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

// TestOllamaCompleteStream tests the streaming path end to end.
func TestOllamaCompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunks := []ollamaChatResponse{
			{Message: ollamaMessage{Role: "assistant", Content: "Hel"}},
			{Message: ollamaMessage{Role: "assistant", Content: "lo"}},
			{Done: true},
		}
		enc := json.NewEncoder(w)
		for _, c := range chunks {
			enc.Encode(c)
		}
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3")
	require.NoError(t, err)

	contentCh, errCh := svc.CompleteStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, DefaultCompletionOptions())

	var got string
	for chunk := range contentCh {
		got += chunk
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello", got)
}

// TestSplitSystem tests the Anthropic system-message extraction.
func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
	})

	assert.Equal(t, "you are helpful", system)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
}

// TestDefaultCompletionOptions tests default options.
func TestDefaultCompletionOptions(t *testing.T) {
	opts := DefaultCompletionOptions()
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 2048, opts.MaxTokens)
	assert.False(t, opts.Stream)
}

// TestProviderConstants tests provider constants.
func TestProviderConstants(t *testing.T) {
	assert.Equal(t, Provider("ollama"), ProviderOllama)
	assert.Equal(t, Provider("openai"), ProviderOpenAI)
	assert.Equal(t, Provider("anthropic"), ProviderAnthropic)
}
