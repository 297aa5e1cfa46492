package research

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

const exaSearchEndpoint = "https://api.exa.ai/search"

// ExaSearcher implements NeuralSearcher against Exa's semantic search API.
// Grounded on original_source's exa_researcher.py: Exa is chosen there over
// keyword search specifically because it surfaces authoritative
// counter-arguments instead of SEO-optimized pages.
type ExaSearcher struct {
	apiKey     string
	httpClient *http.Client
}

// NewExaSearcher constructs a searcher. apiKey empty uses EXA_API_KEY.
func NewExaSearcher(apiKey string) *ExaSearcher {
	if apiKey == "" {
		apiKey = os.Getenv("EXA_API_KEY")
	}
	return &ExaSearcher{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type exaSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
	Contents   struct {
		Highlights struct {
			NumSentences int `json:"numSentences"`
		} `json:"highlights"`
	} `json:"contents"`
}

type exaSearchResponse struct {
	Results []struct {
		Title      string   `json:"title"`
		URL        string   `json:"url"`
		Text       string   `json:"text"`
		Highlights []string `json:"highlights"`
	} `json:"results"`
}

// Search issues one neural-search query against Exa and returns up to
// numResults hits.
func (e *ExaSearcher) Search(ctx context.Context, query string, numResults int) ([]SearchResult, error) {
	req := exaSearchRequest{Query: query, NumResults: numResults, Type: "neural"}
	req.Contents.Highlights.NumSentences = 2

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal exa request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, exaSearchEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create exa request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", e.apiKey)

	res, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send exa request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read exa response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Exa API error (status %d): %s", res.StatusCode, string(respBody))
	}

	var resp exaSearchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse exa response: %w", err)
	}

	out := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		highlight := ""
		if len(r.Highlights) > 0 {
			highlight = r.Highlights[0]
		}
		out[i] = SearchResult{Title: r.Title, URL: r.URL, Text: r.Text, Highlight: highlight}
	}
	return out, nil
}
