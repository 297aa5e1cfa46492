// Package llm provides a model-agnostic text-completion interface shared by
// the topic researcher and the script synthesizer. Both issue free-form
// prompts against a large language model and then parse tolerant, possibly
// malformed JSON or semi-structured text out of the response.
package llm

import (
	"context"
	"fmt"
)

// Request describes one completion call.
type Request struct {
	System      string
	User        string
	MaxTokens   int64
	Temperature float64
}

// Generator completes a prompt against a specific model/provider.
type Generator interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds provider selection and credential overrides.
type Config struct {
	Provider string // "claude", "gemini", "nova", "bedrock"
	Model    string // provider-specific model id or alias
	APIKey   string // optional per-request override; empty = env var
}

// New returns the Generator for the given provider/model combination.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "", "claude":
		return NewClaudeGenerator(cfg.Model, cfg.APIKey), nil
	case "gemini":
		return NewGeminiGenerator(cfg.Model, cfg.APIKey), nil
	case "nova":
		return NewNovaGenerator(cfg.Model)
	case "bedrock":
		return NewBedrockGenerator(cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be claude, gemini, nova, or bedrock", cfg.Provider)
	}
}

// ModelDisplayName returns a human-readable model identifier for logging.
func ModelDisplayName(provider, model string) string {
	names := map[string]map[string]string{
		"claude": {
			"haiku":  "claude-haiku-4-5-20251001",
			"sonnet": "claude-sonnet-4-5-20250929",
		},
		"gemini": {
			"gemini-flash": "gemini-2.5-flash",
			"gemini-pro":   "gemini-2.5-pro",
		},
		"nova": {
			"nova-lite": "us.amazon.nova-2-lite-v1:0",
		},
	}
	if m, ok := names[provider]; ok {
		if name, ok := m[model]; ok {
			return name
		}
	}
	if model == "" {
		return provider
	}
	return model
}
