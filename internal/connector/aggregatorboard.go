package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apresai/podcastos/internal/model"
)

// aggregatorBoardConnector fetches stories from a Hacker-News-style Firebase
// item API: one list-of-ids endpoint, then one GET per item id, fanned out
// with a bounded errgroup. Grounded on original_source's HackerNewsConnector.
type aggregatorBoardConnector struct {
	baseURL    string
	endpoint   string
	httpClient *http.Client
	stats      Stats
}

func newAggregatorBoardConnector(src model.ContentSource) (Connector, error) {
	return &aggregatorBoardConnector{
		baseURL:    configString(src.Config, "baseUrl", "https://hacker-news.firebaseio.com/v0"),
		endpoint:   configString(src.Config, "endpoint", "topstories"),
		httpClient: &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (c *aggregatorBoardConnector) Kind() model.SourceKind { return model.SourceAggregatorBoard }
func (c *aggregatorBoardConnector) Stats() Stats           { return c.stats }

type boardItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
}

func (c *aggregatorBoardConnector) Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error) {
	var ids []int
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.baseURL, c.endpoint), &ids); err != nil {
		c.recordError(err)
		return nil, nil
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]model.RawContentItem, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			var bi boardItem
			if err := c.getJSON(gctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &bi); err != nil {
				slog.Warn("aggregator board item fetch failed", "id", id, "error", err)
				return nil // transient, skip this item only
			}
			items[i] = boardItemToRawContent(bi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.recordError(err)
		return nil, nil
	}

	out := make([]model.RawContentItem, 0, len(items))
	for _, it := range items {
		if it.ID != "" {
			out = append(out, it)
		}
	}
	c.stats.FetchCount++
	c.stats.LastFetchedAt = time.Now().UTC()
	return out, nil
}

func boardItemToRawContent(bi boardItem) model.RawContentItem {
	if bi.Title == "" {
		return model.RawContentItem{}
	}
	score, comments := bi.Score, bi.Descendants
	item := model.RawContentItem{
		ID:          model.ItemID(model.SourceAggregatorBoard, fmt.Sprintf("%d", bi.ID)),
		SourceKind:  model.SourceAggregatorBoard,
		SourceName:  "Hacker News",
		Title:       bi.Title,
		Body:        bi.Text,
		URL:         bi.URL,
		Author:      bi.By,
		PublishedAt: time.Unix(bi.Time, 0).UTC(),
		FetchedAt:   time.Now().UTC(),
		Score:       &score,
		Comments:    &comments,
	}
	item.ContentHash = model.ComputeContentHash(item.Title, item.Body)
	return item
}

func (c *aggregatorBoardConnector) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *aggregatorBoardConnector) recordError(err error) {
	c.stats.ErrorCount++
	c.stats.LastError = err.Error()
	slog.Warn("aggregator board connector fetch failed", "endpoint", c.endpoint, "error", err)
}
