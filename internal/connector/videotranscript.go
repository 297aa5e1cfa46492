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

// videoTranscriptConnector fetches captions for a configured list of video
// ids via YouTube's public timedtext endpoint (no API key required).
// Grounded on original_source's YouTubeTranscriptConnector: a fixed list of
// video ids is configured up front, one fetch per id, never discovers new
// videos on its own.
type videoTranscriptConnector struct {
	videoIDs        []string
	language        string
	includeKeywords []string
	excludeKeywords []string
	httpClient      *http.Client
	stats           Stats
}

func newVideoTranscriptConnector(src model.ContentSource) (Connector, error) {
	ids := configStringSlice(src.Config, "videoIds")
	if len(ids) == 0 {
		return nil, fmt.Errorf("video-transcripts connector: config.videoIds is required")
	}
	return &videoTranscriptConnector{
		videoIDs:        ids,
		language:        configString(src.Config, "language", "en"),
		includeKeywords: configStringSlice(src.Config, "includeKeywords"),
		excludeKeywords: configStringSlice(src.Config, "excludeKeywords"),
		httpClient:      &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (c *videoTranscriptConnector) Kind() model.SourceKind { return model.SourceVideoTranscripts }
func (c *videoTranscriptConnector) Stats() Stats           { return c.stats }

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func (c *videoTranscriptConnector) Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error) {
	now := time.Now().UTC()
	items := make([]model.RawContentItem, 0, len(c.videoIDs))
	for _, videoID := range c.videoIDs {
		if len(items) >= limit {
			break
		}
		item, err := c.fetchVideo(ctx, videoID, now)
		if err != nil {
			c.recordError(err)
			continue
		}
		if item == nil || !matchesKeywords(item.Title, c.includeKeywords, c.excludeKeywords) {
			continue
		}
		items = append(items, *item)
	}
	c.stats.FetchCount++
	c.stats.LastFetchedAt = now
	return items, nil
}

func (c *videoTranscriptConnector) fetchVideo(ctx context.Context, videoID string, now time.Time) (*model.RawContentItem, error) {
	endpoint := fmt.Sprintf("https://video.google.com/timedtext?lang=%s&v=%s", c.language, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript for %s: %w", videoID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript fetch for %s: HTTP %d", videoID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read transcript for %s: %w", videoID, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("no transcript available for %s", videoID)
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcript for %s: %w", videoID, err)
	}

	var sb strings.Builder
	for _, line := range parsed.Texts {
		sb.WriteString(strings.TrimSpace(line.Text))
		sb.WriteString(" ")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("empty transcript for %s", videoID)
	}

	item := model.RawContentItem{
		ID:          model.ItemID(model.SourceVideoTranscripts, videoID),
		SourceKind:  model.SourceVideoTranscripts,
		SourceName:  "YouTube",
		Title:       titleFromText(text, 80),
		Body:        text,
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		PublishedAt: now,
		FetchedAt:   now,
	}
	item.ContentHash = model.ComputeContentHash(item.Title, item.Body)
	return &item, nil
}

func titleFromText(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

func (c *videoTranscriptConnector) recordError(err error) {
	c.stats.ErrorCount++
	c.stats.LastError = err.Error()
	slog.Warn("video transcript connector fetch failed", "error", err)
}
