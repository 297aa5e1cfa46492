package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

const geminiGenerateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiGenerator calls the Gemini generateContent REST endpoint directly.
// Grounded on the teacher's script.GeminiGenerator.
type GeminiGenerator struct {
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewGeminiGenerator(model, apiKey string) *GeminiGenerator {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return &GeminiGenerator{
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GeminiGenerator) Name() string { return "gemini:" + g.model }

type geminiTextRequest struct {
	SystemInstruction *geminiTextContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiTextContent `json:"contents"`
	GenerationConfig  *geminiTextGenCfg   `json:"generationConfig,omitempty"`
}

type geminiTextContent struct {
	Parts []geminiTextPart `json:"parts"`
}

type geminiTextPart struct {
	Text string `json:"text"`
}

type geminiTextGenCfg struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiTextResponse struct {
	Candidates []geminiTextCandidate `json:"candidates"`
}

type geminiTextCandidate struct {
	Content geminiTextRespContent `json:"content"`
}

type geminiTextRespContent struct {
	Parts []geminiTextRespPart `json:"parts"`
}

type geminiTextRespPart struct {
	Text string `json:"text"`
}

func (g *GeminiGenerator) Complete(ctx context.Context, req Request) (string, error) {
	modelID := geminiModels[g.model]
	if modelID == "" {
		modelID = geminiModels["gemini-flash"]
	}

	maxTokens := int(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 8192
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	body := geminiTextRequest{
		SystemInstruction: &geminiTextContent{Parts: []geminiTextPart{{Text: req.System}}},
		Contents:          []geminiTextContent{{Parts: []geminiTextPart{{Text: req.User}}}},
		GenerationConfig: &geminiTextGenCfg{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	return withBackoff(ctx, func(attempt int) (string, error, bool) {
		text, retryable, err := g.doRequest(ctx, modelID, body)
		if err != nil {
			return "", fmt.Errorf("Gemini API error (attempt %d/%d): %w", attempt, maxRetries, err), retryable
		}
		if text == "" {
			return "", fmt.Errorf("empty response from Gemini (attempt %d/%d)", attempt, maxRetries), true
		}
		return text, nil, false
	})
}

func (g *GeminiGenerator) doRequest(ctx context.Context, modelID string, reqBody geminiTextRequest) (text string, retryable bool, err error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiGenerateEndpoint+"?key=%s", modelID, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		return "", true, fmt.Errorf("retryable error (status %d): %s", res.StatusCode, string(errBody))
	}
	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return "", false, fmt.Errorf("Gemini API error (status %d): %s", res.StatusCode, string(errBody))
	}

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}

	var resp geminiTextResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", false, fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", false, fmt.Errorf("response contained no text")
	}
	return resp.Candidates[0].Content.Parts[0].Text, false, nil
}
