package cluster

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

const geminiEmbedEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/text-embedding-004:batchEmbedContents"

// GeminiEmbedder computes embeddings via Gemini's batchEmbedContents REST
// endpoint, in the same raw-HTTP style as internal/llm's GeminiGenerator
// (this package has no reason to depend on internal/llm's text-completion
// Generator for what is really a separate embeddings API surface).
type GeminiEmbedder struct {
	apiKey     string
	httpClient *http.Client
}

// NewGeminiEmbedder constructs an Embedder. apiKey empty uses GEMINI_API_KEY.
func NewGeminiEmbedder(apiKey string) *GeminiEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return &GeminiEmbedder{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string         `json:"model"`
	Content embedContent   `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Embed batches every text into one request and returns one vector per
// input, in order.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	reqs := make([]embedContentRequest, len(texts))
	for i, t := range texts {
		reqs[i] = embedContentRequest{
			Model:   "models/text-embedding-004",
			Content: embedContent{Parts: []embedPart{{Text: t}}},
		}
	}

	body, err := json.Marshal(embedRequest{Requests: reqs})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := geminiEmbedEndpoint + "?key=" + e.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send embed request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API error (status %d): %s", res.StatusCode, string(respBody))
	}

	var resp embedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
