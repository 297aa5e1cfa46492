package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

// ClaudeGenerator calls the Anthropic Messages API. Grounded on the
// teacher's script.ClaudeGenerator; generalized to take an arbitrary
// system/user prompt pair instead of a fixed script-generation prompt.
type ClaudeGenerator struct {
	model  string
	apiKey string // optional per-request override; empty = env ANTHROPIC_API_KEY
}

func NewClaudeGenerator(model, apiKey string) *ClaudeGenerator {
	return &ClaudeGenerator{model: model, apiKey: apiKey}
}

func (g *ClaudeGenerator) Name() string { return "claude:" + g.model }

func (g *ClaudeGenerator) Complete(ctx context.Context, req Request) (string, error) {
	var client anthropic.Client
	if g.apiKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(g.apiKey))
	} else {
		client = anthropic.NewClient()
	}

	modelID := claudeModels[g.model]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return withBackoff(ctx, func(attempt int) (string, error, bool) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(modelID),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(temperature),
			System: []anthropic.TextBlockParam{
				{Text: req.System},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("Claude API error (attempt %d/%d): %w", attempt, maxRetries, err), true
		}
		text := extractClaudeText(message)
		if text == "" {
			return "", fmt.Errorf("empty response from Claude (attempt %d/%d)", attempt, maxRetries), true
		}
		return text, nil, false
	})
}

func extractClaudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}
