// Package llm abstracts the completion providers used for code
// generation: a local Ollama server and the Gemini API.
package llm

import (
	"context"
	"fmt"

	"faustpilot/internal/config"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Client defines the interface for completion providers.
type Client interface {
	// Complete sends a single prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Chat sends a multi-turn conversation. Retry turns in the
	// generation loop go through this so the model sees its own
	// earlier attempts.
	Chat(ctx context.Context, systemPrompt string, msgs []Message) (string, error)

	// Name identifies the provider and model, for logging.
	Name() string
}

// New creates a client from configuration.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			Endpoint:    cfg.OllamaEndpoint,
			Model:       cfg.OllamaModel,
			Timeout:     cfg.TimeoutDuration(),
			Temperature: cfg.Temperature,
		}), nil
	case "gemini":
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use ollama or gemini)", cfg.Provider)
	}
}
