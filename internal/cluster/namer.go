package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apresai/podcastos/internal/llm"
)

// LLMNamer names clusters via a chat-completion model, one call per cluster.
// It makes no batched call across clusters; when a call fails or returns no
// name, the clusterer keeps its keyword-derived fallback name.
type LLMNamer struct {
	gen llm.Generator
}

// NewLLMNamer wraps a Generator as a Namer.
func NewLLMNamer(gen llm.Generator) *LLMNamer {
	return &LLMNamer{gen: gen}
}

type namerResponse struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// NameCluster asks the model for a short name and 2-3 sentence summary for
// one cluster of titles.
func (n *LLMNamer) NameCluster(ctx context.Context, titles []string) (string, string, error) {
	if n == nil || n.gen == nil {
		return "", "", fmt.Errorf("namer: no generator configured")
	}
	prompt := "Titles in this news cluster:\n- " + strings.Join(titles, "\n- ") +
		"\n\nRespond with JSON: {\"name\": \"<=6 word topic name\", \"summary\": \"2-3 sentence summary\"}."

	out, err := n.gen.Complete(ctx, llm.Request{
		System:      "You are a news editor naming story clusters concisely and accurately.",
		User:        prompt,
		MaxTokens:   300,
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("namer: complete: %w", err)
	}

	var parsed namerResponse
	if err := json.Unmarshal([]byte(llm.Normalize(out)), &parsed); err != nil {
		return "", "", fmt.Errorf("namer: parse response: %w", err)
	}
	if parsed.Name == "" {
		return "", "", fmt.Errorf("namer: empty name in response")
	}
	return parsed.Name, parsed.Summary, nil
}
