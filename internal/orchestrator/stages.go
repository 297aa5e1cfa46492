package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/store"
	"github.com/apresai/podcastos/internal/synth"
)

// applyAvoidance drops clusters matched by one of the profile's avoidance
// rules. Grounded on spec.md §3's Topic-Avoidance Rule semantics: permanent
// rules always exclude a keyword match, temporary rules exclude until their
// Until date passes, and reduce-frequency rules exclude only when the
// profile's history shows a matching headline within MinDaysBetweenMentions.
func applyAvoidance(profile model.Profile, clusters []model.TopicCluster, history []model.TopicHistoryEntry, now time.Time) []model.TopicCluster {
	if len(profile.AvoidanceRules) == 0 {
		return clusters
	}
	out := make([]model.TopicCluster, 0, len(clusters))
	for _, cl := range clusters {
		if isAvoided(cl, profile.AvoidanceRules, history, now) {
			continue
		}
		out = append(out, cl)
	}
	return out
}

func isAvoided(cl model.TopicCluster, rules []model.AvoidanceRule, history []model.TopicHistoryEntry, now time.Time) bool {
	haystack := strings.ToLower(cl.Name + " " + cl.Summary)
	for _, rule := range rules {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" || !strings.Contains(haystack, keyword) {
			continue
		}
		switch rule.Kind {
		case model.AvoidancePermanent:
			return true
		case model.AvoidanceTemporary:
			if rule.Until == nil || now.Before(*rule.Until) {
				return true
			}
		case model.AvoidanceReduceFrequency:
			if lastCoveredWithin(history, keyword, rule.MinDaysBetweenMentions, now) {
				return true
			}
		}
	}
	return false
}

func lastCoveredWithin(history []model.TopicHistoryEntry, keyword string, days int, now time.Time) bool {
	if days <= 0 {
		return false
	}
	cutoff := now.AddDate(0, 0, -days)
	for _, h := range history {
		if strings.Contains(strings.ToLower(h.Headline), keyword) && h.CoveredAt.After(cutoff) {
			return true
		}
	}
	return false
}

// verifyTopics converts researched clusters into the editorially-ranked
// VerifiedTopics script synthesis consumes: priority order by cluster
// priority score, capped to the job's requested topic count, with a
// suggested tone/duration/talking-points derived from the research.
func verifyTopics(researched []model.ResearchedTopic, opts model.JobOptions) []model.VerifiedTopic {
	sort.SliceStable(researched, func(i, j int) bool {
		return researched[i].Cluster.PriorityScore > researched[j].Cluster.PriorityScore
	})

	limit := opts.TopicCount
	if limit <= 0 || limit > len(researched) {
		limit = len(researched)
	}

	out := make([]model.VerifiedTopic, 0, limit)
	for i, r := range researched[:limit] {
		out = append(out, model.VerifiedTopic{
			Researched:        r,
			FinalHeadline:     r.Headline,
			FinalSummary:      r.Summary,
			SuggestedTone:     suggestTone(r),
			SuggestedDuration: suggestDuration(opts.DurationMinutes, limit),
			KeyTalkingPoints:  talkingPoints(r),
			PriorityRank:      i + 1,
			EditorialScore:    editorialScore(r),
			Approved:          true,
		})
	}
	return out
}

func suggestTone(r model.ResearchedTopic) model.SuggestedTone {
	switch {
	case r.Cluster.IsBreaking:
		return model.ToneUrgent
	case len(r.CounterArguments) > 0:
		return model.ToneBalanced
	case r.Depth == model.DepthDeep:
		return model.ToneAnalytical
	default:
		return model.ToneConversational
	}
}

func suggestDuration(totalMinutes, topicCount int) time.Duration {
	if topicCount <= 0 {
		topicCount = 1
	}
	minutes := float64(totalMinutes) / float64(topicCount)
	if minutes <= 0 {
		minutes = 3
	}
	return time.Duration(minutes * float64(time.Minute))
}

func talkingPoints(r model.ResearchedTopic) []string {
	var points []string
	for _, f := range r.Facts {
		points = append(points, f.Claim)
	}
	if r.Implications != "" {
		points = append(points, r.Implications)
	}
	return points
}

// editorialScore weights fact density, source balance, and diversity into a
// single 0-10 score, stored as the topic's EditorialScore and (divided by 10)
// as its topic-history importance. Topic order comes from cluster priority,
// not from this score.
func editorialScore(r model.ResearchedTopic) float64 {
	score := r.Quality.FactDensity*4 + r.Quality.Balance*3 + float64(r.Quality.SourceDiversity)
	if score > 10 {
		score = 10
	}
	return score
}

func issueMessages(issues []synth.ReviewIssue) []string {
	out := make([]string, len(issues))
	for i, iss := range issues {
		out[i] = "[" + iss.Severity + "] " + iss.Message
	}
	return out
}

func factClaims(facts []model.VerifiedFact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Claim
	}
	return out
}

func episodeDescription(script model.PodcastScript, verified []model.VerifiedTopic) string {
	if len(verified) == 0 {
		return script.Title
	}
	headlines := make([]string, len(verified))
	for i, t := range verified {
		headlines[i] = t.FinalHeadline
	}
	return strings.Join(headlines, "; ")
}

// persistEpisode builds the Episode and TopicHistory rows from a finished
// (possibly audio-less) render and writes them transactionally.
func persistEpisode(ctx context.Context, st *store.Store, profile model.Profile, episodeID string, script model.PodcastScript, audioEp model.AudioEpisode, verified []model.VerifiedTopic, targetDate time.Time, newsletterURL string) error {
	var topics []string
	for _, t := range verified {
		topics = append(topics, t.FinalHeadline)
	}

	durationSeconds := audioEp.DurationSeconds
	if durationSeconds == 0 {
		durationSeconds = script.EstimatedDuration.Seconds()
	}

	ep := model.Episode{
		ID:              episodeID,
		ProfileID:       profile.ID,
		Title:           script.Title,
		Description:     episodeDescription(script, verified),
		PublishedAt:     targetDate,
		DurationSeconds: durationSeconds,
		AudioURL:        audioEp.LocalPath,
		Script:          script,
		Segments:        audioEp.Segments,
		Topics:          topics,
		NewsletterURL:   newsletterURL,
	}

	now := time.Now().UTC()
	history := make([]model.TopicHistoryEntry, 0, len(verified))
	for _, t := range verified {
		history = append(history, model.TopicHistoryEntry{
			ProfileID:      profile.ID,
			EpisodeID:      episodeID,
			Headline:       t.FinalHeadline,
			Category:       t.Researched.Cluster.Category,
			Summary:        t.FinalSummary,
			KeyPoints:      t.KeyTalkingPoints,
			FactsMentioned: factClaims(t.Researched.Facts),
			Ongoing:        t.Researched.Cluster.IsTrending,
			Importance:     t.EditorialScore / 10,
			CoveredAt:      now,
		})
	}

	return st.PersistEpisode(ctx, ep, audioEp.Segments, history)
}
