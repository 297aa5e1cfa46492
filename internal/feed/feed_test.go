package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

func TestRenderIncludesChannelAndItunesNamespace(t *testing.T) {
	ch := Channel{Title: "TechDaily", WebsiteURL: "https://example.com", FeedURL: "https://example.com/feed.xml"}
	out, err := Render(ch, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, `<?xml version="1.0"`) {
		t.Fatalf("feed missing XML declaration:\n%s", doc)
	}
	if !strings.Contains(doc, "xmlns:itunes") {
		t.Fatalf("feed missing itunes namespace:\n%s", doc)
	}
	if !strings.Contains(doc, "<channel>") {
		t.Fatalf("feed missing channel element:\n%s", doc)
	}
}

func TestRenderOneItemPerEpisode(t *testing.T) {
	ch := Channel{Title: "TechDaily"}
	episodes := []model.Episode{
		{ID: "techdaily-20260731", Title: "Ep 1", Description: "first", PublishedAt: time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC), DurationSeconds: 600, AudioURL: "https://cdn.example.com/techdaily-20260731.mp3"},
		{ID: "techdaily-20260730", Title: "Ep 2", Description: "second", PublishedAt: time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC), DurationSeconds: 300, AudioURL: "https://cdn.example.com/techdaily-20260730.mp3"},
	}

	out, err := Render(ch, episodes)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc := string(out)
	if n := strings.Count(doc, "<item>"); n != 2 {
		t.Fatalf("item count = %d, want 2:\n%s", n, doc)
	}
	if !strings.Contains(doc, `isPermaLink="false"`) {
		t.Fatalf("missing guid isPermaLink attribute:\n%s", doc)
	}
	if !strings.Contains(doc, "<itunes:duration>00:10:00</itunes:duration>") {
		t.Fatalf("duration not formatted HH:MM:SS for 600s episode:\n%s", doc)
	}
}

func TestBuildItemFallsBackToAudioBaseURL(t *testing.T) {
	ch := Channel{AudioBaseURL: "https://cdn.example.com/episodes"}
	ep := model.Episode{ID: "ep-1", AudioURL: "/var/data/audio/ep-1.mp3", DurationSeconds: 60}

	item := buildItem(ch, ep)
	if item.Enclosure.URL != "https://cdn.example.com/episodes/ep-1.mp3" {
		t.Fatalf("enclosure URL = %q, want rewritten to the audio base URL", item.Enclosure.URL)
	}
}

func TestBuildItemSizeHeuristic(t *testing.T) {
	ep := model.Episode{ID: "ep-1", AudioURL: "https://cdn.example.com/ep-1.mp3", DurationSeconds: 120}
	item := buildItem(Channel{}, ep)
	if item.Enclosure.Length != 120*sizeHeuristicBytesPerSecond {
		t.Fatalf("enclosure length = %d, want duration*16000", item.Enclosure.Length)
	}
}

func TestFormatDurationHandlesHours(t *testing.T) {
	if got := formatDuration(3725); got != "01:02:05" {
		t.Fatalf("formatDuration(3725) = %q, want 01:02:05", got)
	}
}

func TestSummarizeTruncatesLongDescriptions(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := summarize(long, 200)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Fatalf("summarize did not truncate to 200 chars + ellipsis, got len %d", len(got))
	}
}
