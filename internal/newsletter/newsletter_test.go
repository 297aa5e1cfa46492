package newsletter

import (
	"context"
	"strings"
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func TestGenerateWithNilGeneratorUsesFallbacks(t *testing.T) {
	profile := model.Profile{Name: "TechDaily"}
	topics := []model.VerifiedTopic{
		{FinalHeadline: "AI breakthrough", FinalSummary: "A new model was released.", KeyTalkingPoints: []string{"point one"}},
	}

	nl := New(nil).Generate(context.Background(), profile, topics)
	if len(nl.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(nl.Sections))
	}
	if nl.Sections[0].Body != topics[0].FinalSummary {
		t.Fatalf("fallback section body = %q, want the topic summary", nl.Sections[0].Body)
	}
	if !strings.Contains(nl.Intro, "TechDaily") {
		t.Fatalf("fallback intro = %q, want it to reference the profile name", nl.Intro)
	}
	if nl.ReadingMinutes < 1 {
		t.Fatalf("reading minutes = %d, want at least 1", nl.ReadingMinutes)
	}
}

func TestToMarkdownIncludesSectionsAndSources(t *testing.T) {
	nl := Newsletter{
		Title: "TechDaily: Today's Briefing",
		Intro: "Here's the news.",
		Sections: []Section{
			{Headline: "AI breakthrough", Body: "Details here.", SourceURLs: []string{"https://example.com/a"}},
		},
		Outro:          "See you tomorrow.",
		ReadingMinutes: 2,
		WordCount:      120,
	}

	md := nl.ToMarkdown()
	if !strings.Contains(md, "## AI breakthrough") {
		t.Fatalf("markdown missing section heading:\n%s", md)
	}
	if !strings.Contains(md, "Sources: https://example.com/a") {
		t.Fatalf("markdown missing sources line:\n%s", md)
	}
	if !strings.Contains(md, "2 min read") {
		t.Fatalf("markdown missing reading time:\n%s", md)
	}
}

func TestSourceURLsDedupesAndLimits(t *testing.T) {
	facts := []model.VerifiedFact{
		{SourceURL: "https://a.example.com"},
		{SourceURL: "https://a.example.com"},
		{SourceURL: "https://b.example.com"},
		{SourceURL: "https://c.example.com"},
		{SourceURL: "https://d.example.com"},
	}
	got := sourceURLs(facts, 3)
	if len(got) != 3 {
		t.Fatalf("sourceURLs = %v, want 3 deduped entries", got)
	}
}

func TestPreviewTextEmptyFallback(t *testing.T) {
	if got := previewText(nil); got != "Your daily update is here" {
		t.Fatalf("previewText(nil) = %q", got)
	}
}
