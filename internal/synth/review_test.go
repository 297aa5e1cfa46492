package synth

import (
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func scriptWithLines(aCount, bCount int) model.PodcastScript {
	var segs []model.ScriptSegment
	for i := 0; i < aCount; i++ {
		segs = append(segs, model.ScriptSegment{Lines: []model.DialogueLine{{Speaker: "alex", Text: "line"}}})
	}
	for i := 0; i < bCount; i++ {
		segs = append(segs, model.ScriptSegment{Lines: []model.DialogueLine{{Speaker: "sam", Text: "line"}}})
	}
	return model.PodcastScript{Segments: segs}
}

func TestCheckSpeakerBalanceFlagsUnderrepresentedHost(t *testing.T) {
	script := scriptWithLines(9, 1) // sam gets 10%, below the 30% floor
	issues := checkSpeakerBalance(script, 2)
	if len(issues) != 1 {
		t.Fatalf("checkSpeakerBalance() issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != "error" {
		t.Fatalf("checkSpeakerBalance() severity = %q, want error", issues[0].Severity)
	}
}

func TestCheckSpeakerBalancePassesEvenSplit(t *testing.T) {
	script := scriptWithLines(5, 5)
	if issues := checkSpeakerBalance(script, 2); len(issues) != 0 {
		t.Fatalf("checkSpeakerBalance() issues = %+v, want none", issues)
	}
}

func TestCheckSegmentCountWithinToleranceIsClean(t *testing.T) {
	script := model.PodcastScript{Segments: make([]model.ScriptSegment, 20)} // target for 10min is 20
	if issues := checkSegmentCount(script, 10); len(issues) != 0 {
		t.Fatalf("checkSegmentCount() issues = %+v, want none", issues)
	}
}

func TestCheckSegmentCountOutsideToleranceErrors(t *testing.T) {
	script := model.PodcastScript{Segments: make([]model.ScriptSegment, 2)} // far below target of 20
	issues := checkSegmentCount(script, 10)
	if len(issues) != 1 || issues[0].Severity != "error" {
		t.Fatalf("checkSegmentCount() issues = %+v, want one error", issues)
	}
}

func TestCheckFillerPhrasesCountsOncePerLine(t *testing.T) {
	script := model.PodcastScript{
		Intro: []model.DialogueLine{
			{Speaker: "alex", Text: "Absolutely, that's a great point and so true."},
		},
	}
	issues := checkFillerPhrases(script)
	if len(issues) != 1 {
		t.Fatalf("checkFillerPhrases() issues = %d, want 1", len(issues))
	}
	if issues[0].Severity != "warning" {
		t.Fatalf("checkFillerPhrases() severity = %q, want warning for a single offending line", issues[0].Severity)
	}
}

func TestReviewApprovesCleanScript(t *testing.T) {
	profile := testProfile()
	script := model.PodcastScript{
		Segments: make([]model.ScriptSegment, targetSegments(profile.TargetDurationMin)),
	}
	for i := range script.Segments {
		speaker := "alex"
		if i%2 == 1 {
			speaker = "sam"
		}
		script.Segments[i].Lines = []model.DialogueLine{{Speaker: speaker, Text: "a clean line of dialogue"}}
	}

	r := NewReviewer(nil)
	result, err := r.Review(t.Context(), script, profile)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if !result.Approved {
		t.Fatalf("Review() issues = %+v, want approved", result.Issues)
	}
}

func TestReviewWithoutGeneratorReportsIssuesUnrevised(t *testing.T) {
	profile := testProfile()
	script := scriptWithLines(1, 0) // way too few segments, all one speaker

	r := NewReviewer(nil)
	result, err := r.Review(t.Context(), script, profile)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if result.Approved {
		t.Fatal("Review() should not approve an unbalanced, undersized script")
	}
	if result.Revised != nil {
		t.Fatal("Review() should not revise when no generator is configured")
	}
}
