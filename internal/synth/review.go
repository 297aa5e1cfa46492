package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/model"
)

// ReviewIssue describes one quality problem found in a script.
type ReviewIssue struct {
	Category string // "segment_count", "balance", "filler"
	Message  string
	Severity string // "error" or "warning"
}

// ReviewResult is the outcome of an editorial review pass.
type ReviewResult struct {
	Approved bool
	Issues   []ReviewIssue
	Revised  *model.PodcastScript // nil unless Phase B ran and returned a revision
}

// Reviewer runs the optional editorial pass (spec.md §4.5's "editorial
// review" option), grounded on the teacher's two-phase reviewer: cheap
// heuristic checks first (Phase A), escalating to an LLM revision call
// (Phase B) only when Phase A finds an error-severity issue.
type Reviewer struct {
	gen llm.Generator
}

// NewReviewer constructs a Reviewer. gen may be nil, in which case Phase B
// is skipped and Review only ever reports issues without revising.
func NewReviewer(gen llm.Generator) *Reviewer {
	return &Reviewer{gen: gen}
}

// Review checks script against profile's structural targets and, if any
// check fails at error severity, asks the generator to revise it.
func (r *Reviewer) Review(ctx context.Context, script model.PodcastScript, profile model.Profile) (ReviewResult, error) {
	var issues []ReviewIssue
	issues = append(issues, checkSegmentCount(script, profile.TargetDurationMin)...)
	issues = append(issues, checkSpeakerBalance(script, len(profile.Hosts))...)
	issues = append(issues, checkFillerPhrases(script)...)

	hasErrors := false
	for _, issue := range issues {
		if issue.Severity == "error" {
			hasErrors = true
			break
		}
	}
	if !hasErrors {
		return ReviewResult{Approved: true, Issues: issues}, nil
	}
	if r.gen == nil {
		return ReviewResult{Approved: false, Issues: issues}, nil
	}

	revised, err := r.reviseScript(ctx, script, profile, issues)
	if err != nil {
		// LLM revision failed — report the heuristic issues unrevised rather
		// than blocking the pipeline on a reviewer outage.
		return ReviewResult{Approved: false, Issues: issues}, nil
	}
	return ReviewResult{Approved: false, Issues: issues, Revised: &revised}, nil
}

func targetSegments(durationMinutes int) int {
	// roughly one segment per 30 seconds of target runtime, floor of 4
	n := durationMinutes * 2
	if n < 4 {
		n = 4
	}
	return n
}

func checkSegmentCount(script model.PodcastScript, durationMinutes int) []ReviewIssue {
	target := targetSegments(durationMinutes)
	actual := len(script.Segments)
	tolerance := float64(target) * 0.15

	if math.Abs(float64(actual-target)) > tolerance {
		return []ReviewIssue{{
			Category: "segment_count",
			Message: fmt.Sprintf("script has %d segments, target is %d (±15%% tolerance: %d-%d)",
				actual, target, int(float64(target)-tolerance), int(float64(target)+tolerance)),
			Severity: "error",
		}}
	}
	return nil
}

// bannedPhrases are low-content filler reactions the reviewer screens for.
var bannedPhrases = []string{
	"that's a great point",
	"absolutely",
	"exactly",
	"that's fascinating",
	"i love that",
	"so true",
	"100 percent",
	"you nailed it",
	"that's so interesting",
	"right, right",
	"great question",
	"that's a really good question",
	"i couldn't agree more",
	"you're so right",
	"that's brilliant",
	"oh wow",
	"amazing point",
	"that's spot on",
	"couldn't have said it better",
	"you hit the nail on the head",
	"that's exactly right",
}

func checkSpeakerBalance(script model.PodcastScript, voices int) []ReviewIssue {
	if voices <= 0 {
		voices = 2
	}
	counts := map[string]int{}
	lines := script.AllLines()
	for _, l := range lines {
		counts[l.Speaker]++
	}
	total := len(lines)
	if total == 0 {
		return nil
	}

	minPct := 0.30
	if voices >= 3 {
		minPct = 0.20
	}

	var issues []ReviewIssue
	for speaker, count := range counts {
		pct := float64(count) / float64(total)
		if pct < minPct {
			issues = append(issues, ReviewIssue{
				Category: "balance",
				Message: fmt.Sprintf("%s has only %.0f%% of lines (%d/%d), minimum is %.0f%%",
					speaker, pct*100, count, total, minPct*100),
				Severity: "error",
			})
		}
	}
	return issues
}

func checkFillerPhrases(script model.PodcastScript) []ReviewIssue {
	fillerCount := 0
	for _, l := range script.AllLines() {
		lower := strings.ToLower(l.Text)
		for _, phrase := range bannedPhrases {
			if strings.Contains(lower, phrase) {
				fillerCount++
				break // count once per line at most
			}
		}
	}
	if fillerCount == 0 {
		return nil
	}
	severity := "warning"
	if fillerCount > 5 {
		severity = "error"
	}
	return []ReviewIssue{{
		Category: "filler",
		Message:  fmt.Sprintf("found %d lines with banned filler phrases", fillerCount),
		Severity: severity,
	}}
}

func (r *Reviewer) reviseScript(ctx context.Context, script model.PodcastScript, profile model.Profile, issues []ReviewIssue) (model.PodcastScript, error) {
	original, err := json.Marshal(scriptToResponse(script))
	if err != nil {
		return model.PodcastScript{}, fmt.Errorf("marshal script for revision: %w", err)
	}

	prompt := buildReviewPrompt(string(original), profile, issues)
	out, err := r.gen.Complete(ctx, llm.Request{
		System:      buildSystemPrompt(profile),
		User:        prompt,
		MaxTokens:   maxTokensForDuration(profile.TargetDurationMin),
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		return model.PodcastScript{}, fmt.Errorf("revise: complete: %w", err)
	}

	origTopicIDs := make([]string, len(script.Segments))
	for i, seg := range script.Segments {
		origTopicIDs[i] = seg.TopicID
	}
	revised, err := parseScript(out, profile, origTopicIDs)
	if err != nil {
		return model.PodcastScript{}, err
	}
	revised.WordCount = revised.WordsTotal()
	revised.EstimatedDuration = estimateDuration(revised.WordCount)
	return revised, nil
}

func scriptToResponse(script model.PodcastScript) scriptResponse {
	toLines := func(lines []model.DialogueLine) []lineResponse {
		out := make([]lineResponse, len(lines))
		for i, l := range lines {
			out[i] = lineResponse{Speaker: l.Speaker, Text: l.Text}
		}
		return out
	}
	resp := scriptResponse{
		Title: script.Title,
		Intro: toLines(script.Intro),
		Outro: toLines(script.Outro),
	}
	for _, seg := range script.Segments {
		resp.Segments = append(resp.Segments, struct {
			TopicHeadline string         `json:"topicHeadline"`
			Lines         []lineResponse `json:"lines"`
		}{TopicHeadline: seg.TopicHeadline, Lines: toLines(seg.Lines)})
	}
	return resp
}

func buildReviewPrompt(originalJSON string, profile model.Profile, issues []ReviewIssue) string {
	var sb strings.Builder
	sb.WriteString("You are reviewing and revising a podcast script. The draft below has quality issues that need fixing.\n\n")
	sb.WriteString("ISSUES FOUND:\n")
	for _, issue := range issues {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", issue.Severity, issue.Category, issue.Message)
	}
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("1. Fix every issue listed above.\n")
	sb.WriteString("2. Keep the same topics, facts, and general flow.\n")
	sb.WriteString("3. Keep the same speaker names.\n")
	sb.WriteString("4. If segment count is wrong, add or remove segments to hit the target.\n")
	sb.WriteString("5. If speaker balance is off, redistribute lines more evenly.\n")
	sb.WriteString("6. Replace any filler phrases with specific, content-relevant reactions.\n\n")
	sb.WriteString("ORIGINAL SCRIPT (JSON):\n")
	sb.WriteString(originalJSON)
	sb.WriteString("\n\nRespond with the revised script as strict JSON, same schema as the original.")
	return sb.String()
}
