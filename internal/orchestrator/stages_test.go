package orchestrator

import (
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

func TestApplyAvoidancePermanentRuleExcludesMatch(t *testing.T) {
	profile := model.Profile{
		AvoidanceRules: []model.AvoidanceRule{
			{Keyword: "election", Kind: model.AvoidancePermanent},
		},
	}
	clusters := []model.TopicCluster{
		{ID: "a", Name: "Local Election Results"},
		{ID: "b", Name: "New Restaurant Opens Downtown"},
	}

	out := applyAvoidance(profile, clusters, nil, time.Now())
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("applyAvoidance = %+v, want only cluster b", out)
	}
}

func TestApplyAvoidanceTemporaryRuleExpires(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	profile := model.Profile{
		AvoidanceRules: []model.AvoidanceRule{
			{Keyword: "storm", Kind: model.AvoidanceTemporary, Until: &past},
		},
	}
	clusters := []model.TopicCluster{{ID: "a", Name: "Storm Warning Issued"}}

	out := applyAvoidance(profile, clusters, nil, time.Now())
	if len(out) != 1 {
		t.Fatalf("applyAvoidance excluded a cluster whose temporary rule already expired: %+v", out)
	}
}

func TestApplyAvoidanceReduceFrequencyChecksHistory(t *testing.T) {
	profile := model.Profile{
		AvoidanceRules: []model.AvoidanceRule{
			{Keyword: "budget", Kind: model.AvoidanceReduceFrequency, MinDaysBetweenMentions: 7},
		},
	}
	clusters := []model.TopicCluster{{ID: "a", Name: "City Budget Debate"}}
	now := time.Now()

	recentHistory := []model.TopicHistoryEntry{{Headline: "City Budget Shortfall", CoveredAt: now.Add(-2 * 24 * time.Hour)}}
	if out := applyAvoidance(profile, clusters, recentHistory, now); len(out) != 0 {
		t.Fatalf("applyAvoidance = %+v, want cluster excluded by recent history", out)
	}

	staleHistory := []model.TopicHistoryEntry{{Headline: "City Budget Shortfall", CoveredAt: now.Add(-30 * 24 * time.Hour)}}
	if out := applyAvoidance(profile, clusters, staleHistory, now); len(out) != 1 {
		t.Fatalf("applyAvoidance = %+v, want cluster kept once history is stale", out)
	}
}

func TestVerifyTopicsRanksByPriorityAndCapsToTopicCount(t *testing.T) {
	researched := []model.ResearchedTopic{
		{Headline: "Low priority", Cluster: model.TopicCluster{PriorityScore: 2}},
		{Headline: "High priority", Cluster: model.TopicCluster{PriorityScore: 9}, Facts: []model.VerifiedFact{{Claim: "fact one"}}},
		{Headline: "Mid priority", Cluster: model.TopicCluster{PriorityScore: 5}},
	}

	out := verifyTopics(researched, model.JobOptions{TopicCount: 2, DurationMinutes: 10})
	if len(out) != 2 {
		t.Fatalf("verifyTopics returned %d topics, want 2", len(out))
	}
	if out[0].FinalHeadline != "High priority" || out[1].FinalHeadline != "Mid priority" {
		t.Fatalf("verifyTopics order = %+v, want High then Mid priority", out)
	}
	if out[0].PriorityRank != 1 || out[1].PriorityRank != 2 {
		t.Fatalf("verifyTopics priority ranks = %d, %d, want 1, 2", out[0].PriorityRank, out[1].PriorityRank)
	}
	if len(out[0].KeyTalkingPoints) == 0 {
		t.Fatalf("verifyTopics dropped talking points derived from facts")
	}
}

func TestVerifyTopicsZeroTopicCountKeepsAll(t *testing.T) {
	researched := []model.ResearchedTopic{
		{Headline: "A", Cluster: model.TopicCluster{PriorityScore: 1}},
		{Headline: "B", Cluster: model.TopicCluster{PriorityScore: 2}},
	}
	out := verifyTopics(researched, model.JobOptions{})
	if len(out) != 2 {
		t.Fatalf("verifyTopics with TopicCount=0 returned %d, want all %d", len(out), len(researched))
	}
}

func TestSuggestToneBreakingIsUrgent(t *testing.T) {
	got := suggestTone(model.ResearchedTopic{Cluster: model.TopicCluster{IsBreaking: true}})
	if got != model.ToneUrgent {
		t.Fatalf("suggestTone = %q, want urgent", got)
	}
}

func TestEpisodeDescriptionJoinsHeadlines(t *testing.T) {
	verified := []model.VerifiedTopic{{FinalHeadline: "A"}, {FinalHeadline: "B"}}
	got := episodeDescription(model.PodcastScript{Title: "Show"}, verified)
	if got != "A; B" {
		t.Fatalf("episodeDescription = %q, want %q", got, "A; B")
	}

	if got := episodeDescription(model.PodcastScript{Title: "Show"}, nil); got != "Show" {
		t.Fatalf("episodeDescription with no topics = %q, want title fallback", got)
	}
}
