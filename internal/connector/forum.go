package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// forumConnector fetches posts from a Reddit-style forum JSON listing
// endpoint. Grounded on original_source's RedditAggregator: subreddit list,
// engagement = score + 2*comments, OAuth-optional.
type forumConnector struct {
	board          string
	includeKeywords []string
	excludeKeywords []string
	httpClient     *http.Client
	stats          Stats
}

func newForumConnector(src model.ContentSource) (Connector, error) {
	board := configString(src.Config, "board", "")
	if board == "" {
		return nil, fmt.Errorf("forum connector: config.board is required")
	}
	return &forumConnector{
		board:           board,
		includeKeywords: configStringSlice(src.Config, "includeKeywords"),
		excludeKeywords: configStringSlice(src.Config, "excludeKeywords"),
		httpClient:      &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (c *forumConnector) Kind() model.SourceKind { return model.SourceForum }

func (c *forumConnector) Stats() Stats { return c.stats }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				URL         string  `json:"url"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Permalink   string  `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *forumConnector) Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error) {
	endpoint := fmt.Sprintf("https://www.reddit.com/r/%s/hot.json?limit=%d", url.PathEscape(c.board), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("forum connector: build request: %w", err)
	}
	req.Header.Set("User-Agent", "podcastos/1.0 (+https://github.com/apresai/podcastos)")

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

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		c.recordError(err)
		return nil, nil
	}

	now := time.Now().UTC()
	items := make([]model.RawContentItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if !matchesKeywords(d.Title, c.includeKeywords, c.excludeKeywords) {
			continue
		}
		score, comments := d.Score, d.NumComments
		item := model.RawContentItem{
			ID:          model.ItemID(model.SourceForum, d.Permalink),
			SourceKind:  model.SourceForum,
			SourceName:  "r/" + c.board,
			Title:       d.Title,
			Body:        d.Selftext,
			URL:         "https://reddit.com" + d.Permalink,
			Author:      d.Author,
			PublishedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
			FetchedAt:   now,
			Score:       &score,
			Comments:    &comments,
		}
		item.ContentHash = model.ComputeContentHash(item.Title, item.Body)
		items = append(items, item)
	}
	c.stats.FetchCount++
	c.stats.LastFetchedAt = now
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *forumConnector) recordError(err error) {
	c.stats.ErrorCount++
	c.stats.LastError = err.Error()
	slog.Warn("forum connector fetch failed", "board", c.board, "error", err)
}
