// Package synth implements the Script Synthesizer (C5): turns a profile and
// a set of verified topics into a three-part PodcastScript via an LLM
// generator, with tolerant JSON parsing and a deterministic fallback.
// Grounded on the teacher's internal/script package (claude.go's
// generate-parse-validate loop, personas.go's persona construction,
// format.go's per-format structural directive) generalized onto
// internal/llm's shared Generator/parsing and model.PodcastScript's
// intro/segments/outro shape.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/model"
)

// Synthesizer drives script generation for one episode.
type Synthesizer struct {
	gen llm.Generator
}

// New constructs a Synthesizer.
func New(gen llm.Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

type scriptResponse struct {
	Title    string `json:"title"`
	Intro    []lineResponse `json:"intro"`
	Segments []struct {
		TopicHeadline string         `json:"topicHeadline"`
		Lines         []lineResponse `json:"lines"`
	} `json:"segments"`
	Outro []lineResponse `json:"outro"`
}

type lineResponse struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Synthesize writes a full script from a profile and its verified topics.
func (s *Synthesizer) Synthesize(ctx context.Context, profile model.Profile, topics []model.VerifiedTopic) (model.PodcastScript, error) {
	if s.gen == nil || len(topics) == 0 {
		return fallbackScript(profile, topics), nil
	}

	sysPrompt := buildSystemPrompt(profile)
	userPrompt := buildUserPrompt(profile, topics)

	out, err := s.gen.Complete(ctx, llm.Request{
		System:      sysPrompt,
		User:        userPrompt,
		MaxTokens:   maxTokensForDuration(profile.TargetDurationMin),
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		return model.PodcastScript{}, fmt.Errorf("synthesize: complete: %w", err)
	}

	script, err := parseScript(out, profile, topicIDs(topics))
	if err != nil {
		return fallbackScript(profile, topics), nil
	}
	script.WordCount = script.WordsTotal()
	script.EstimatedDuration = estimateDuration(script.WordCount)
	return script, nil
}

func maxTokensForDuration(minutes int) int64 {
	switch {
	case minutes >= 30:
		return 24576
	case minutes >= 15:
		return 12288
	default:
		return 8192
	}
}

func buildSystemPrompt(profile model.Profile) string {
	format := profile.Format
	if !IsValidFormat(format) {
		format = "conversation"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You write %s scripts. ", formatLabelForPrompt(format, len(profile.Hosts)))
	fmt.Fprintf(&sb, "Audience: %s. Tone: %s. ", profile.Audience, profile.Tone)
	sb.WriteString("Hosts:\n")
	for _, h := range profile.Hosts {
		fmt.Fprintf(&sb, "- %s: %s, speaking style: %s\n", h.Name, h.Persona, h.SpeakingStyle)
	}
	sb.WriteString("\n")
	sb.WriteString(formatDirective(format))
	sb.WriteString("\n\nEvery dialogue line's speaker must exactly match a host name above, lowercased. ")
	sb.WriteString("Respond with strict JSON only, no commentary.")
	return sb.String()
}

func buildUserPrompt(profile model.Profile, topics []model.VerifiedTopic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %d-minute episode covering %d topics in order of priority.\n\n", profile.TargetDurationMin, len(topics))
	for i, t := range topics {
		fmt.Fprintf(&sb, "Topic %d: %s\n%s\n", i+1, t.FinalHeadline, t.FinalSummary)
		for _, p := range t.KeyTalkingPoints {
			fmt.Fprintf(&sb, "  - %s\n", p)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Respond with JSON: {"title":"","intro":[{"speaker":"","text":""}],` +
		`"segments":[{"topicHeadline":"","lines":[{"speaker":"","text":""}]}],"outro":[{"speaker":"","text":""}]}`)
	return sb.String()
}

// topicIDs extracts each verified topic's cluster id, in order, so
// parseScript can assign a segment's topicId positionally: the LLM is
// prompted with topics in priority order and asked to return segments in
// the same order (buildUserPrompt), so the i-th segment corresponds to the
// i-th topic.
func topicIDs(topics []model.VerifiedTopic) []string {
	ids := make([]string, len(topics))
	for i, t := range topics {
		ids[i] = t.Researched.Cluster.ID
	}
	return ids
}

func parseScript(raw string, profile model.Profile, topicIDs []string) (model.PodcastScript, error) {
	normalized := llm.Normalize(raw)
	var parsed scriptResponse
	if err := json.Unmarshal([]byte(normalized), &parsed); err != nil {
		return model.PodcastScript{}, fmt.Errorf("parse script: %w", err)
	}
	if len(parsed.Segments) == 0 {
		return model.PodcastScript{}, fmt.Errorf("parse script: no segments")
	}

	validSpeakers := make(map[string]bool, len(profile.Hosts))
	for _, h := range profile.Hosts {
		validSpeakers[strings.ToLower(h.Name)] = true
	}
	normalizeLine := func(l lineResponse) model.DialogueLine {
		speaker := strings.ToLower(strings.TrimSpace(l.Speaker))
		if !validSpeakers[speaker] && len(profile.Hosts) > 0 {
			speaker = strings.ToLower(profile.Hosts[0].Name)
		}
		return model.DialogueLine{Speaker: speaker, Text: l.Text}
	}

	script := model.PodcastScript{Title: parsed.Title}
	for _, l := range parsed.Intro {
		script.Intro = append(script.Intro, normalizeLine(l))
	}
	for i, seg := range parsed.Segments {
		var lines []model.DialogueLine
		for _, l := range seg.Lines {
			lines = append(lines, normalizeLine(l))
		}
		if len(lines) == 0 {
			continue
		}
		var topicID string
		if i < len(topicIDs) {
			topicID = topicIDs[i]
		}
		script.Segments = append(script.Segments, model.ScriptSegment{
			TopicID:       topicID,
			TopicHeadline: seg.TopicHeadline,
			Lines:         lines,
		})
	}
	for _, l := range parsed.Outro {
		script.Outro = append(script.Outro, normalizeLine(l))
	}
	if len(script.Segments) == 0 {
		return model.PodcastScript{}, fmt.Errorf("parse script: no usable segments after normalization")
	}
	return script, nil
}

// fallbackScript builds a deterministic, template-driven script when no
// generator is configured, there are no topics, or the generator's response
// cannot be parsed. A failed generator call is not retried and is returned
// by Synthesize as an error instead.
func fallbackScript(profile model.Profile, topics []model.VerifiedTopic) model.PodcastScript {
	hostA, hostB := "host", "host"
	if len(profile.Hosts) > 0 {
		hostA = strings.ToLower(profile.Hosts[0].Name)
		hostB = hostA
	}
	if len(profile.Hosts) > 1 {
		hostB = strings.ToLower(profile.Hosts[1].Name)
	}

	script := model.PodcastScript{
		Title: fmt.Sprintf("%s Daily Briefing", profile.Name),
		Intro: []model.DialogueLine{
			{Speaker: hostA, Text: fmt.Sprintf("Welcome back to %s.", profile.Name)},
			{Speaker: hostB, Text: "Let's get into today's stories."},
		},
	}
	for _, t := range topics {
		script.Segments = append(script.Segments, model.ScriptSegment{
			TopicID:       t.Researched.Cluster.ID,
			TopicHeadline: t.FinalHeadline,
			Lines: []model.DialogueLine{
				{Speaker: hostA, Text: t.FinalHeadline},
				{Speaker: hostB, Text: t.FinalSummary},
			},
		})
	}
	script.Outro = []model.DialogueLine{
		{Speaker: hostA, Text: "That's all for today."},
		{Speaker: hostB, Text: "See you next time."},
	}
	script.WordCount = script.WordsTotal()
	script.EstimatedDuration = estimateDuration(script.WordCount)
	return script
}

// wordsPerMinute is a typical spoken-English pace used to estimate runtime
// before audio rendering.
const wordsPerMinute = 150

func estimateDuration(wordCount int) time.Duration {
	seconds := wordCount * 60 / wordsPerMinute
	return time.Duration(seconds) * time.Second
}
