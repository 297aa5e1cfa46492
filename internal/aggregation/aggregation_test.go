package aggregation

import (
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func score(n int) *int { return &n }

func TestDedupeDropsDuplicateURLsAndTitles(t *testing.T) {
	items := []model.RawContentItem{
		{ID: "1", URL: "https://a.com/1", Title: "Breaking News About Something Important Happening Today"},
		{ID: "2", URL: "https://a.com/1", Title: "A different title entirely"},
		{ID: "3", URL: "https://b.com/2", Title: "Breaking News About Something Important Happening Today Two"},
	}
	out := dedupe(items)
	if len(out) != 1 {
		t.Fatalf("dedupe() returned %d items, want 1: %+v", len(out), out)
	}
}

func TestRankOrdersByWeightedEngagement(t *testing.T) {
	sources := []model.ContentSource{
		{Kind: model.SourceForum, Priority: 10, Credibility: 1.0},
		{Kind: model.SourceRSS, Priority: 1, Credibility: 0.1},
	}
	items := []model.RawContentItem{
		{ID: "low", SourceKind: model.SourceRSS, Score: score(100)},
		{ID: "high", SourceKind: model.SourceForum, Score: score(10)},
	}
	rank(items, sources)
	if items[0].ID != "high" {
		t.Fatalf("rank() put %q first, want %q", items[0].ID, "high")
	}
}
