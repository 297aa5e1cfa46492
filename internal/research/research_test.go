package research

import (
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func TestDetermineDepthBreakingIsQuick(t *testing.T) {
	cl := model.TopicCluster{IsBreaking: true, PriorityScore: 9}
	if got := DetermineDepth(cl); got != model.DepthQuick {
		t.Fatalf("DetermineDepth() = %v, want quick", got)
	}
}

func TestDetermineDepthHighPriorityIsDeep(t *testing.T) {
	cl := model.TopicCluster{PriorityScore: 8.5}
	if got := DetermineDepth(cl); got != model.DepthDeep {
		t.Fatalf("DetermineDepth() = %v, want deep", got)
	}
}

func TestDetermineDepthDefaultsStandard(t *testing.T) {
	cl := model.TopicCluster{PriorityScore: 4, SourceDiversity: 1}
	if got := DetermineDepth(cl); got != model.DepthStandard {
		t.Fatalf("DetermineDepth() = %v, want standard", got)
	}
}

func TestEstimateCredibilityTiers(t *testing.T) {
	cases := map[string]float64{
		"https://www.reuters.com/article":   0.9,
		"https://example.edu/paper":         0.95,
		"https://www.techcrunch.com/post":   0.75,
		"https://randomblog.example.com/x":  0.6,
	}
	for u, want := range cases {
		if got := estimateCredibility(u); got != want {
			t.Errorf("estimateCredibility(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestScoreQualityBalance(t *testing.T) {
	rt := model.ResearchedTopic{
		Cluster: model.TopicCluster{Members: []model.RawContentItem{{}, {}}},
		Facts:   []model.VerifiedFact{{SourceType: "news"}, {SourceType: "academic"}},
		Opinions: []model.ExpertOpinion{
			{Stance: model.StancePro}, {Stance: model.StanceCon},
		},
	}
	q := scoreQuality(rt)
	if q.Balance != 1.0 {
		t.Fatalf("Balance = %v, want 1.0 for equal pro/con", q.Balance)
	}
	if q.SourceDiversity != 2 {
		t.Fatalf("SourceDiversity = %v, want 2", q.SourceDiversity)
	}
}
