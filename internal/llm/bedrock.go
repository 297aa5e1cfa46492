package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// bedrockModels holds the model IDs reachable through the generic Bedrock
// Converse API (Claude, Llama, Mistral, etc. hosted on Bedrock) as an
// alternate backend to calling Anthropic directly.
var bedrockModels = map[string]string{
	"claude-bedrock": "anthropic.claude-sonnet-4-5-20250929-v1:0",
}

// bedrockConverseGenerator calls any model behind Bedrock's Converse API.
// Grounded on the teacher's script.NovaGenerator, generalized from a
// Nova-only client into a reusable Bedrock-backed Generator: NewNovaGenerator
// and NewBedrockGenerator both build one, differing only in which model map
// they look the requested model up in.
type bedrockConverseGenerator struct {
	label  string
	model  string
	lookup map[string]string
	client *bedrockruntime.Client
}

func newBedrockConverseGenerator(label, model string, lookup map[string]string) (*bedrockConverseGenerator, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &bedrockConverseGenerator{
		label:  label,
		model:  model,
		lookup: lookup,
		client: bedrockruntime.NewFromConfig(cfg),
	}, nil
}

// NewNovaGenerator returns a Generator backed by Amazon Nova on Bedrock.
func NewNovaGenerator(model string) (Generator, error) {
	return newBedrockConverseGenerator("nova", model, novaModels)
}

// NewBedrockGenerator returns a Generator backed by any Bedrock-hosted model,
// used as the alternate LLM backend for research and synthesis when a job's
// scriptProvider option is "bedrock" instead of calling Anthropic directly.
func NewBedrockGenerator(model string) (Generator, error) {
	return newBedrockConverseGenerator("bedrock", model, bedrockModels)
}

func (g *bedrockConverseGenerator) Name() string { return g.label + ":" + g.model }

func (g *bedrockConverseGenerator) Complete(ctx context.Context, req Request) (string, error) {
	modelID := g.lookup[g.model]
	if modelID == "" {
		for _, v := range g.lookup {
			modelID = v
			break
		}
	}

	maxTokens := int32(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 8192
	}
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return withBackoff(ctx, func(attempt int) (string, error, bool) {
		resp, err := g.client.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId: aws.String(modelID),
			System: []types.SystemContentBlock{
				&types.SystemContentBlockMemberText{Value: req.System},
			},
			Messages: []types.Message{
				{
					Role:    types.ConversationRoleUser,
					Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.User}},
				},
			},
			InferenceConfig: &types.InferenceConfiguration{
				MaxTokens:   aws.Int32(maxTokens),
				Temperature: aws.Float32(temperature),
			},
		})
		if err != nil {
			return "", fmt.Errorf("Bedrock Converse error (attempt %d/%d): %w", attempt, maxRetries, err), true
		}
		text := extractBedrockText(resp)
		if text == "" {
			return "", fmt.Errorf("empty response from Bedrock (attempt %d/%d)", attempt, maxRetries), true
		}
		return text, nil, false
	})
}

func extractBedrockText(resp *bedrockruntime.ConverseOutput) string {
	if resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}
