package connector

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// rssConnector fetches and parses an RSS 2.0 feed via encoding/xml.
// Grounded on Soypete-PedroCLI's pkg/tools/rss.go.
type rssConnector struct {
	feedURL         string
	includeKeywords []string
	excludeKeywords []string
	httpClient      *http.Client
	stats           Stats
}

func newRSSConnector(src model.ContentSource) (Connector, error) {
	feedURL := configString(src.Config, "feedUrl", "")
	if feedURL == "" {
		return nil, fmt.Errorf("rss connector: config.feedUrl is required")
	}
	return &rssConnector{
		feedURL:         feedURL,
		includeKeywords: configStringSlice(src.Config, "includeKeywords"),
		excludeKeywords: configStringSlice(src.Config, "excludeKeywords"),
		httpClient:      &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (c *rssConnector) Kind() model.SourceKind { return model.SourceRSS }
func (c *rssConnector) Stats() Stats           { return c.stats }

type rssChannel struct {
	XMLName xml.Name  `xml:"rss"`
	Title   string    `xml:"channel>title"`
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
	GUID        string `xml:"guid"`
}

var rssDateFormats = []string{
	time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700", "2006-01-02T15:04:05-07:00",
}

func parseRSSDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, format := range rssDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (c *rssConnector) Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss connector: build request: %w", err)
	}
	req.Header.Set("User-Agent", "podcastos/1.0 RSS Reader")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

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

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		c.recordError(err)
		return nil, nil
	}

	var channel rssChannel
	if err := xml.Unmarshal(body, &channel); err != nil {
		c.recordError(fmt.Errorf("parse feed: %w", err))
		return nil, nil
	}

	now := time.Now().UTC()
	items := make([]model.RawContentItem, 0, len(channel.Items))
	for i, it := range channel.Items {
		if i >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if !matchesKeywords(title, c.includeKeywords, c.excludeKeywords) {
			continue
		}
		item := model.RawContentItem{
			ID:          model.ItemID(model.SourceRSS, it.Link),
			SourceKind:  model.SourceRSS,
			SourceName:  channel.Title,
			Title:       title,
			Body:        it.Description,
			URL:         it.Link,
			Author:      it.Author,
			PublishedAt: parseRSSDate(it.PubDate),
			FetchedAt:   now,
		}
		item.ContentHash = model.ComputeContentHash(item.Title, item.Body)
		items = append(items, item)
	}
	c.stats.FetchCount++
	c.stats.LastFetchedAt = now
	return items, nil
}

func (c *rssConnector) recordError(err error) {
	c.stats.ErrorCount++
	c.stats.LastError = err.Error()
	slog.Warn("rss connector fetch failed", "feed", c.feedURL, "error", err)
}
