package provider

import (
	"context"
	"errors"

	"github.com/layaask/answerbot/config"
	openai_provider "github.com/layaask/answerbot/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Message is one turn of a chat conversation.
type Message = openai_provider.Message

// Completion is the provider's reply plus token accounting.
type Completion = openai_provider.Completion

// Provider is the interface all LLM implementations must satisfy
type Provider interface {
	ChatCompletion(ctx context.Context, messages []Message) (Completion, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Type) {
	case OpenAI, "":
		if cfg.APIKey == "" {
			return nil, errors.New("llm api key not set")
		}
		return openai_provider.NewClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
