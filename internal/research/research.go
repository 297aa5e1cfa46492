// Package research implements the Topic Researcher (C4): drives
// depth-appropriate LLM research on each topic cluster, collects
// counter-arguments via neural search, and scores the result's quality.
// Grounded on original_source's
// src/intelligence/research/research_orchestrator.py (depth policy, Google +
// Exa composition) and exa_researcher.py (counter-argument queries,
// domain-credibility heuristic), adapted onto internal/llm's Generator
// abstraction in place of the source's Google/Exa-specific clients.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/model"
)

// NeuralSearcher performs semantic (not keyword) web search, used to surface
// counter-arguments and dissenting sources. An external collaborator.
type NeuralSearcher interface {
	Search(ctx context.Context, query string, numResults int) ([]SearchResult, error)
}

// SearchResult is one hit from a NeuralSearcher query.
type SearchResult struct {
	Title     string
	URL       string
	Text      string
	Highlight string
}

const (
	maxCounterArgQueries = 3
	maxCounterArgURLs    = 5
)

// Researcher drives topic research via an LLM generator and an optional
// neural searcher for counter-arguments.
type Researcher struct {
	gen    llm.Generator
	search NeuralSearcher
}

// New constructs a Researcher. search may be nil, in which case
// counter-arguments are simply omitted.
func New(gen llm.Generator, search NeuralSearcher) *Researcher {
	return &Researcher{gen: gen, search: search}
}

// DetermineDepth picks a research depth from cluster characteristics.
// Grounded on ResearchOrchestrator._determine_depth: breaking news gets
// quick (speed matters), priority>=8 gets deep, diversity>=3 gets standard,
// everything else defaults to standard.
func DetermineDepth(cl model.TopicCluster) model.ResearchDepth {
	switch {
	case cl.IsBreaking:
		return model.DepthQuick
	case cl.PriorityScore >= 8:
		return model.DepthDeep
	default:
		return model.DepthStandard
	}
}

// ResearchCluster researches one topic cluster at an auto-determined (or
// explicit) depth, then enriches it with counter-arguments when a
// NeuralSearcher is configured.
func (r *Researcher) ResearchCluster(ctx context.Context, cl model.TopicCluster, depth model.ResearchDepth, includeCounterArguments bool) (model.ResearchedTopic, error) {
	if depth == "" {
		depth = DetermineDepth(cl)
	}

	researched, err := r.researchAtDepth(ctx, cl, depth)
	if err != nil {
		return model.ResearchedTopic{}, fmt.Errorf("research cluster %s: %w", cl.ID, err)
	}

	if includeCounterArguments && r.search != nil && len(researched.Facts) > 0 {
		mainClaim := researched.Facts[0].Claim
		counterArgs, err := r.findCounterArguments(ctx, cl.Name, mainClaim)
		if err != nil {
			// Non-fatal: research proceeds without counter-arguments.
			researched.CounterArguments = nil
		} else {
			researched.CounterArguments = counterArgs
		}
	}

	researched.Quality = scoreQuality(researched)
	return researched, nil
}

// ResearchClusters researches a batch of clusters, tolerating per-cluster
// failures so one bad topic never drops the whole batch. Grounded on
// ResearchOrchestrator.research_clusters's asyncio.gather(return_exceptions=True).
func (r *Researcher) ResearchClusters(ctx context.Context, clusters []model.TopicCluster, includeCounterArguments bool) []model.ResearchedTopic {
	out := make([]model.ResearchedTopic, 0, len(clusters))
	for _, cl := range clusters {
		researched, err := r.ResearchCluster(ctx, cl, "", includeCounterArguments)
		if err != nil {
			continue
		}
		out = append(out, researched)
	}
	return out
}

type researchResponse struct {
	Headline           string   `json:"headline"`
	Summary            string   `json:"summary"`
	Background         string   `json:"background"`
	CurrentSituation   string   `json:"currentSituation"`
	Implications       string   `json:"implications"`
	CommunitySentiment string   `json:"communitySentiment"`
	Facts              []struct {
		Claim      string   `json:"claim"`
		SourceURL  string   `json:"sourceUrl"`
		SourceName string   `json:"sourceName"`
		SourceType string   `json:"sourceType"`
		Confidence float64  `json:"confidence"`
		Corroborating []string `json:"corroboratingUrls"`
	} `json:"facts"`
	Opinions []struct {
		Quote  string `json:"quote"`
		Person string `json:"person"`
		Role   string `json:"role"`
		Stance string `json:"stance"`
	} `json:"opinions"`
}

func (r *Researcher) researchAtDepth(ctx context.Context, cl model.TopicCluster, depth model.ResearchDepth) (model.ResearchedTopic, error) {
	if r.gen == nil {
		return model.ResearchedTopic{}, fmt.Errorf("no generator configured")
	}

	maxTokens := depthTokenBudget(depth)
	prompt := buildResearchPrompt(cl, depth)

	out, err := r.gen.Complete(ctx, llm.Request{
		System:      researchSystemPrompt,
		User:        prompt,
		MaxTokens:   maxTokens,
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		return model.ResearchedTopic{}, fmt.Errorf("complete: %w", err)
	}

	var parsed researchResponse
	if jsonErr := json.Unmarshal([]byte(llm.Normalize(out)), &parsed); jsonErr != nil {
		return fallbackResearch(cl, depth), nil
	}

	researched := model.ResearchedTopic{
		Cluster:            cl,
		Headline:           orDefault(parsed.Headline, cl.Name),
		Summary:            orDefault(parsed.Summary, cl.Summary),
		Background:         parsed.Background,
		CurrentSituation:   parsed.CurrentSituation,
		Implications:       parsed.Implications,
		CommunitySentiment: parsed.CommunitySentiment,
		Depth:              depth,
		SourcesConsulted:   len(parsed.Facts),
	}
	for _, f := range parsed.Facts {
		researched.Facts = append(researched.Facts, model.VerifiedFact{
			Claim: f.Claim, SourceURL: f.SourceURL, SourceName: f.SourceName,
			SourceType: f.SourceType, Confidence: f.Confidence, CorroboratingURLs: f.Corroborating,
		})
	}
	for _, o := range parsed.Opinions {
		researched.Opinions = append(researched.Opinions, model.ExpertOpinion{
			Quote: o.Quote, Person: o.Person, Role: o.Role, Stance: model.Stance(o.Stance),
		})
	}
	return researched, nil
}

func depthTokenBudget(depth model.ResearchDepth) int64 {
	switch depth {
	case model.DepthQuick:
		return 800
	case model.DepthDeep:
		return 3000
	default:
		return 1600
	}
}

const researchSystemPrompt = "You are a rigorous news researcher. Verify claims, attribute facts to sources, " +
	"and surface multiple expert perspectives. Respond with strict JSON only."

func buildResearchPrompt(cl model.TopicCluster, depth model.ResearchDepth) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research depth: %s\nTopic: %s\nSummary: %s\n\nSource items:\n", depth, cl.Name, cl.Summary)
	for _, m := range cl.Members {
		fmt.Fprintf(&sb, "- [%s] %s (%s)\n", m.SourceKind, m.Title, m.URL)
	}
	sb.WriteString("\nRespond with JSON: {\"headline\":\"\",\"summary\":\"\",\"background\":\"\",\"currentSituation\":\"\"," +
		"\"implications\":\"\",\"communitySentiment\":\"\",\"facts\":[{\"claim\":\"\",\"sourceUrl\":\"\",\"sourceName\":\"\"," +
		"\"sourceType\":\"\",\"confidence\":0.0,\"corroboratingUrls\":[]}],\"opinions\":[{\"quote\":\"\",\"person\":\"\",\"role\":\"\",\"stance\":\"pro|con|neutral\"}]}")
	return sb.String()
}

// fallbackResearch builds a minimal researched topic directly from cluster
// data when the model's response can't be parsed, so one bad LLM call never
// drops a topic from the episode.
func fallbackResearch(cl model.TopicCluster, depth model.ResearchDepth) model.ResearchedTopic {
	researched := model.ResearchedTopic{
		Cluster:  cl,
		Headline: cl.Name,
		Summary:  cl.Summary,
		Depth:    depth,
	}
	for _, m := range cl.Members {
		researched.Facts = append(researched.Facts, model.VerifiedFact{
			Claim:      m.Title,
			SourceURL:  m.URL,
			SourceName: m.SourceName,
			SourceType: string(m.SourceKind),
			Confidence: 0.5,
		})
	}
	researched.SourcesConsulted = len(researched.Facts)
	return researched
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
