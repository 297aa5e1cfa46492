package synth

import (
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func testProfile() model.Profile {
	return model.Profile{
		Name:              "Daily Briefing",
		Tone:              "casual",
		Audience:          "general",
		TargetDurationMin: 10,
		Hosts: []model.Host{
			{Name: "Alex", Persona: "host", SpeakingStyle: "warm"},
			{Name: "Sam", Persona: "analyst", SpeakingStyle: "measured"},
		},
	}
}

func testTopics() []model.VerifiedTopic {
	return []model.VerifiedTopic{
		{FinalHeadline: "Topic A", FinalSummary: "Summary A", KeyTalkingPoints: []string{"point 1"}},
		{FinalHeadline: "Topic B", FinalSummary: "Summary B", KeyTalkingPoints: []string{"point 2"}},
	}
}

func TestFallbackScriptCoversEveryTopic(t *testing.T) {
	script := fallbackScript(testProfile(), testTopics())
	if len(script.Segments) != 2 {
		t.Fatalf("fallbackScript() segments = %d, want 2", len(script.Segments))
	}
	if script.Segments[0].TopicHeadline != "Topic A" {
		t.Fatalf("fallbackScript() segment 0 headline = %q, want Topic A", script.Segments[0].TopicHeadline)
	}
	if script.WordCount == 0 {
		t.Fatal("fallbackScript() WordCount = 0, want > 0")
	}
}

func TestSynthesizeWithNoGeneratorReturnsFallback(t *testing.T) {
	s := New(nil)
	script, err := s.Synthesize(t.Context(), testProfile(), testTopics())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(script.Segments) != 2 {
		t.Fatalf("Synthesize() segments = %d, want 2", len(script.Segments))
	}
}

func TestParseScriptRejectsUnknownSpeakerByRemapping(t *testing.T) {
	raw := `{"title":"T","intro":[{"speaker":"Unknown","text":"hi"}],
		"segments":[{"topicHeadline":"h","lines":[{"speaker":"ALEX","text":"line one"}]}],
		"outro":[{"speaker":"sam","text":"bye"}]}`
	script, err := parseScript(raw, testProfile(), nil)
	if err != nil {
		t.Fatalf("parseScript() error = %v", err)
	}
	if script.Intro[0].Speaker != "alex" {
		t.Fatalf("parseScript() remapped unknown speaker = %q, want alex (first host fallback)", script.Intro[0].Speaker)
	}
	if script.Segments[0].Lines[0].Speaker != "alex" {
		t.Fatalf("parseScript() speaker = %q, want lowercased alex", script.Segments[0].Lines[0].Speaker)
	}
}

func TestParseScriptFailsWithNoSegments(t *testing.T) {
	raw := `{"title":"T","intro":[],"segments":[],"outro":[]}`
	if _, err := parseScript(raw, testProfile(), nil); err == nil {
		t.Fatal("parseScript() with no segments should error")
	}
}
