package orchestrator

import (
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

func TestEpisodeIDForIsStableAndSlugified(t *testing.T) {
	profile := model.Profile{Name: "The Daily Brief!"}
	date := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	id := episodeIDFor(profile, date)
	if id != "the-daily-brief-20260731" {
		t.Fatalf("episodeIDFor = %q, want the-daily-brief-20260731", id)
	}
	if id != episodeIDFor(profile, date) {
		t.Fatalf("episodeIDFor is not stable across calls with the same inputs")
	}
}

func TestApplyOptionDefaultsFillsFromProfile(t *testing.T) {
	profile := model.Profile{TopicCount: 5, TargetDurationMin: 20}

	opts := model.JobOptions{}
	applyOptionDefaults(&opts, profile)
	if opts.TopicCount != 5 || opts.DurationMinutes != 20 {
		t.Fatalf("applyOptionDefaults = %+v, want topicCount=5 durationMinutes=20", opts)
	}

	explicit := model.JobOptions{TopicCount: 2, DurationMinutes: 10}
	applyOptionDefaults(&explicit, profile)
	if explicit.TopicCount != 2 || explicit.DurationMinutes != 10 {
		t.Fatalf("applyOptionDefaults overwrote explicit options: %+v", explicit)
	}
}

func TestRemoveStagePreservesOrder(t *testing.T) {
	pending := []model.Stage{model.StageAggregation, model.StageClustering, model.StageResearch}
	got := removeStage(pending, model.StageClustering)

	want := []model.Stage{model.StageAggregation, model.StageResearch}
	if len(got) != len(want) {
		t.Fatalf("removeStage = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("removeStage = %v, want %v", got, want)
		}
	}
}

func TestRemoveStageNoMatchIsNoop(t *testing.T) {
	pending := []model.Stage{model.StageAggregation, model.StageClustering}
	got := removeStage(pending, model.StageAudio)
	if len(got) != 2 {
		t.Fatalf("removeStage with no match changed length: %v", got)
	}
}
