package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// newsAPIConnector fetches articles from a NewsAPI-compatible "everything"
// endpoint. Grounded on original_source's news_aggregator.py.
type newsAPIConnector struct {
	query           string
	apiKeyEnv       string
	includeKeywords []string
	excludeKeywords []string
	httpClient      *http.Client
	stats           Stats
}

func newNewsAPIConnector(src model.ContentSource) (Connector, error) {
	query := configString(src.Config, "query", "")
	if query == "" {
		return nil, fmt.Errorf("news-api connector: config.query is required")
	}
	return &newsAPIConnector{
		query:           query,
		apiKeyEnv:       configString(src.Config, "apiKeyEnv", "NEWSAPI_API_KEY"),
		includeKeywords: configStringSlice(src.Config, "includeKeywords"),
		excludeKeywords: configStringSlice(src.Config, "excludeKeywords"),
		httpClient:      &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (c *newsAPIConnector) Kind() model.SourceKind { return model.SourceNewsAPI }
func (c *newsAPIConnector) Stats() Stats           { return c.stats }

type newsAPIResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (c *newsAPIConnector) Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error) {
	apiKey := os.Getenv(c.apiKeyEnv)
	if apiKey == "" {
		c.recordError(fmt.Errorf("missing %s", c.apiKeyEnv))
		return nil, nil
	}

	endpoint := fmt.Sprintf("https://newsapi.org/v2/everything?q=%s&sortBy=publishedAt&pageSize=%d",
		url.QueryEscape(c.query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("news-api connector: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordError(err)
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.recordError(fmt.Errorf("HTTP %d", resp.StatusCode))
		return nil, nil
	}

	var parsed newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.recordError(err)
		return nil, nil
	}

	now := time.Now().UTC()
	items := make([]model.RawContentItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if !matchesKeywords(a.Title, c.includeKeywords, c.excludeKeywords) {
			continue
		}
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		body := a.Content
		if body == "" {
			body = a.Description
		}
		item := model.RawContentItem{
			ID:          model.ItemID(model.SourceNewsAPI, a.URL),
			SourceKind:  model.SourceNewsAPI,
			SourceName:  a.Source.Name,
			Title:       a.Title,
			Body:        body,
			URL:         a.URL,
			Author:      a.Author,
			PublishedAt: published,
			FetchedAt:   now,
		}
		item.ContentHash = model.ComputeContentHash(item.Title, item.Body)
		items = append(items, item)
	}
	c.stats.FetchCount++
	c.stats.LastFetchedAt = now
	return items, nil
}

func (c *newsAPIConnector) recordError(err error) {
	c.stats.ErrorCount++
	c.stats.LastError = err.Error()
	slog.Warn("news-api connector fetch failed", "query", c.query, "error", err)
}
