// Package newsletter generates the markdown companion document persisted
// alongside an episode (spec.md §6's `{outputRoot}/newsletters/{episodeId}.md`),
// built from the same Verified Topics as the script. Grounded on
// original_source/src/intelligence/synthesis/newsletter_generator.py's
// intro/section/outro structure, generalized onto internal/llm's shared
// Generator and model.VerifiedTopic, following internal/synth's
// generate-then-fallback shape.
package newsletter

import (
	"context"
	"fmt"
	"strings"

	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/model"
)

// Section is one topic's newsletter writeup.
type Section struct {
	Headline     string
	Body         string
	KeyTakeaway  string
	SourceURLs   []string
	WordCount    int
}

// Newsletter is the complete issue for one episode.
type Newsletter struct {
	Title          string
	Subtitle       string
	PreviewText    string
	Intro          string
	Sections       []Section
	Outro          string
	WordCount      int
	ReadingMinutes int
}

// Generator drives newsletter generation for one episode from the same
// Verified Topics used for script synthesis.
type Generator struct {
	gen llm.Generator
}

// New constructs a Generator. A nil gen always produces the deterministic
// fallback content.
func New(gen llm.Generator) *Generator {
	return &Generator{gen: gen}
}

const readingWordsPerMinute = 200

// Generate builds a full newsletter issue for profile from topics, in
// priority order (the same order verifyTopics ranked them for the script).
func (g *Generator) Generate(ctx context.Context, profile model.Profile, topics []model.VerifiedTopic) Newsletter {
	title := fmt.Sprintf("%s: Today's Briefing", profile.Name)
	subtitle := themeFrom(topics)

	nl := Newsletter{
		Title:    title,
		Subtitle: subtitle,
		Intro:    g.generateIntro(ctx, profile, topics, title, subtitle),
		Outro:    g.generateOutro(ctx, profile, topics, title),
	}
	for _, t := range topics {
		nl.Sections = append(nl.Sections, g.generateSection(ctx, t))
	}
	nl.PreviewText = previewText(nl.Sections)
	nl.WordCount, nl.ReadingMinutes = stats(nl)
	return nl
}

func themeFrom(topics []model.VerifiedTopic) string {
	if len(topics) == 0 {
		return "Your Daily Update"
	}
	return topics[0].FinalHeadline
}

func (g *Generator) generateSection(ctx context.Context, t model.VerifiedTopic) Section {
	sources := sourceURLs(t.Researched.Facts, 3)
	body := g.complete(ctx, sectionPrompt(t), fallbackSectionBody(t))
	return Section{
		Headline:    t.FinalHeadline,
		Body:        body,
		KeyTakeaway: firstNonEmpty(t.KeyTalkingPoints),
		SourceURLs:  sources,
		WordCount:   len(strings.Fields(body)),
	}
}

func (g *Generator) generateIntro(ctx context.Context, profile model.Profile, topics []model.VerifiedTopic, title, theme string) string {
	return g.complete(ctx, introPrompt(profile, topics, title, theme), fallbackIntro(profile))
}

func (g *Generator) generateOutro(ctx context.Context, profile model.Profile, topics []model.VerifiedTopic, title string) string {
	return g.complete(ctx, outroPrompt(topics, title), fallbackOutro(profile))
}

func (g *Generator) complete(ctx context.Context, prompt, fallback string) string {
	if g.gen == nil {
		return fallback
	}
	out, err := g.gen.Complete(ctx, llm.Request{
		User:        prompt,
		MaxTokens:   800,
		Temperature: 0.7,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}

func sectionPrompt(t model.VerifiedTopic) string {
	var facts strings.Builder
	for i, f := range t.Researched.Facts {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&facts, "- %s\n", f.Claim)
	}
	if facts.Len() == 0 {
		facts.WriteString("No specific facts available\n")
	}

	return fmt.Sprintf(
		"Write a newsletter section about this topic. Make it engaging, informative, and scannable.\n\n"+
			"Topic: %s\nSummary: %s\n\nKey facts:\n%s\n"+
			"Use short paragraphs, bullet points for key information, bold important phrases, and end with a clear takeaway. "+
			"Write in markdown, start directly with the content, no section headers.",
		t.FinalHeadline, t.FinalSummary, facts.String(),
	)
}

func introPrompt(profile model.Profile, topics []model.VerifiedTopic, title, theme string) string {
	var preview strings.Builder
	for i, t := range topics {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&preview, "- %s\n", t.FinalHeadline)
	}
	return fmt.Sprintf(
		"Write a newsletter intro that hooks readers immediately.\n\nNewsletter: %s\nTheme: %s\n\nTopics covered:\n%s\n"+
			"2-3 short paragraphs, ~60-80 words, markdown, direct and compelling.",
		title, theme, preview.String(),
	)
}

func outroPrompt(topics []model.VerifiedTopic, title string) string {
	var headlines []string
	for i, t := range topics {
		if i >= 3 {
			break
		}
		headlines = append(headlines, truncate(t.FinalHeadline, 40))
	}
	return fmt.Sprintf(
		"Write a brief newsletter outro.\n\nNewsletter: %s\nTopics covered: %s\n"+
			"1-2 sentence recap, a simple call to action, ~40-60 words, markdown, warm but professional.",
		title, strings.Join(headlines, ", "),
	)
}

func fallbackSectionBody(t model.VerifiedTopic) string {
	if t.FinalSummary != "" {
		return t.FinalSummary
	}
	return t.FinalHeadline
}

func fallbackIntro(profile model.Profile) string {
	return fmt.Sprintf("Here's what's worth knowing today, from the %s team.", profile.Name)
}

func fallbackOutro(profile model.Profile) string {
	return fmt.Sprintf("That's today's briefing from %s. Reply with your thoughts.", profile.Name)
}

func sourceURLs(facts []model.VerifiedFact, limit int) []string {
	seen := make(map[string]bool, limit)
	var out []string
	for _, f := range facts {
		if f.SourceURL == "" || seen[f.SourceURL] {
			continue
		}
		seen[f.SourceURL] = true
		out = append(out, f.SourceURL)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func firstNonEmpty(points []string) string {
	if len(points) == 0 {
		return ""
	}
	return points[0]
}

func previewText(sections []Section) string {
	if len(sections) == 0 {
		return "Your daily update is here"
	}
	return fmt.Sprintf("%s: %s", sections[0].Headline, truncate(sections[0].Body, 100))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func stats(nl Newsletter) (wordCount, readingMinutes int) {
	wordCount = len(strings.Fields(nl.Intro)) + len(strings.Fields(nl.Outro))
	for _, s := range nl.Sections {
		wordCount += s.WordCount
	}
	readingMinutes = wordCount / readingWordsPerMinute
	if readingMinutes < 1 {
		readingMinutes = 1
	}
	return wordCount, readingMinutes
}

// ToMarkdown renders the newsletter as the markdown document persisted to
// {outputRoot}/newsletters/{episodeId}.md.
func (nl Newsletter) ToMarkdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n*%s*\n\n%s\n\n---\n\n", nl.Title, nl.Subtitle, nl.Intro)

	for _, s := range nl.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Headline, s.Body)
		if len(s.SourceURLs) > 0 {
			fmt.Fprintf(&sb, "*Sources: %s*\n\n", strings.Join(s.SourceURLs, ", "))
		}
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "%s\n\n---\n*%d min read · %d words*\n", nl.Outro, nl.ReadingMinutes, nl.WordCount)
	return sb.String()
}
