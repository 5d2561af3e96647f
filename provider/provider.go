package provider

import (
	"context"
	"errors"

	"github.com/scribechat/scribechat/config"
	openai_provider "github.com/scribechat/scribechat/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Generator streams a completion for a prompt. fn is invoked once per delta,
// in stream order, from a single goroutine; a non-nil return from fn aborts
// the stream and is returned unchanged.
type Generator interface {
	Stream(ctx context.Context, prompt string, fn func(delta string) error) error
}

// Embedder produces embedding vectors for texts.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is the full generation backend surface.
type Provider interface {
	Generator
	Embedder
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openai_provider.NewOpenAIClient(
			cfg.APIKey,
			cfg.BaseURL,
			cfg.Model,
			cfg.EmbeddingModel,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
