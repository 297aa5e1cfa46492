package audio

import (
	"context"
	"os"
	"testing"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/tts"
)

func testScript() model.PodcastScript {
	return model.PodcastScript{
		Intro: []model.DialogueLine{{Speaker: "alex", Text: "Welcome back"}},
		Segments: []model.ScriptSegment{
			{TopicHeadline: "Topic A", Lines: []model.DialogueLine{
				{Speaker: "alex", Text: "Let's talk about topic A"},
				{Speaker: "sam", Text: "Sure thing"},
			}},
		},
		Outro: []model.DialogueLine{{Speaker: "sam", Text: "See you next time"}},
	}
}

func TestBuildSectionsOrdersIntroSegmentsOutro(t *testing.T) {
	sections := buildSections(testScript())
	if len(sections) != 3 {
		t.Fatalf("buildSections() = %d sections, want 3", len(sections))
	}
	if sections[0].kind != model.ContentIntro || sections[1].kind != model.ContentTopic || sections[2].kind != model.ContentOutro {
		t.Fatalf("buildSections() order = %v, %v, %v", sections[0].kind, sections[1].kind, sections[2].kind)
	}
	if sections[1].title != "Topic A" {
		t.Fatalf("buildSections() segment title = %q, want Topic A", sections[1].title)
	}
}

func TestBuildSectionsSkipsEmptyIntroOutro(t *testing.T) {
	script := model.PodcastScript{Segments: []model.ScriptSegment{{TopicHeadline: "Only"}}}
	sections := buildSections(script)
	if len(sections) != 1 {
		t.Fatalf("buildSections() = %d sections, want 1 (no intro/outro)", len(sections))
	}
}

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":                 0,
		"hello":            1,
		"hello world":      2,
		"  lots   of\tgaps\n": 3,
	}
	for in, want := range cases {
		if got := wordCount(in); got != want {
			t.Errorf("wordCount(%q) = %d, want %d", in, got, want)
		}
	}
}

// fakeProvider fails synthesis for any line whose speaker is "sam", and
// otherwise returns a fixed-size MP3 payload.
type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) Synthesize(ctx context.Context, text string, voice tts.Voice) (tts.AudioResult, error) {
	if voice.Name == "Sam" {
		return tts.AudioResult{}, context.DeadlineExceeded
	}
	return tts.AudioResult{Data: []byte("audio-bytes"), Format: tts.FormatMP3}, nil
}

func (fakeProvider) DefaultVoices() tts.VoiceMap {
	return tts.VoiceMap{
		Host1: tts.Voice{ID: "v1", Name: "Alex"},
		Host2: tts.Voice{ID: "v2", Name: "Sam"},
	}
}

func (fakeProvider) Close() error { return nil }

func TestSynthesizeSectionSkipsFailedLines(t *testing.T) {
	dir := t.TempDir()
	r := &Renderer{workDir: dir}

	sec := section{
		kind: model.ContentTopic,
		lines: []model.DialogueLine{
			{Speaker: "alex", Text: "one two three"},
			{Speaker: "sam", Text: "this one fails"},
			{Speaker: "alex", Text: "four five"},
		},
	}

	voiceOf := func(speaker string) tts.Voice {
		if speaker == "sam" {
			return tts.Voice{Name: "Sam"}
		}
		return tts.Voice{Name: "Alex"}
	}

	paths, _, skipped, err := r.synthesizeSection(context.Background(), fakeProvider{}, sec, 0, dir, 2, voiceOf)
	if err != nil {
		t.Fatalf("synthesizeSection() error = %v", err)
	}
	if skipped != 1 {
		t.Fatalf("synthesizeSection() skipped = %d, want 1", skipped)
	}
	if len(paths) != 2 {
		t.Fatalf("synthesizeSection() kept paths = %d, want 2", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected synthesized file at %s: %v", p, err)
		}
	}
}

func TestVoiceResolverPrefersExplicitVoiceID(t *testing.T) {
	profile := model.Profile{Hosts: []model.Host{
		{Name: "Alex", VoiceID: "custom-alex"},
		{Name: "Sam"},
	}}
	resolve := VoiceResolver(profile, fakeProvider{})

	if v := resolve("alex"); v.ID != "custom-alex" {
		t.Errorf("VoiceResolver alex = %q, want custom-alex", v.ID)
	}
	if v := resolve("Sam"); v.ID != "v2" {
		t.Errorf("VoiceResolver sam = %q, want v2 (provider default)", v.ID)
	}
	if v := resolve("unknown"); v.ID != "v1" {
		t.Errorf("VoiceResolver unknown speaker = %q, want provider's Host1 default", v.ID)
	}
}
