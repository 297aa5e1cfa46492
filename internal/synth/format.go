package synth

import "fmt"

// FormatNames returns every show format a profile can select.
func FormatNames() []string {
	return []string{
		"conversation",
		"interview",
		"deep-dive",
		"explainer",
		"debate",
		"news",
		"storytelling",
		"challenger",
	}
}

// IsValidFormat reports whether format is one of FormatNames.
func IsValidFormat(format string) bool {
	for _, f := range FormatNames() {
		if f == format {
			return true
		}
	}
	return false
}

// FormatLabel returns a human-readable label for display.
func FormatLabel(format string) string {
	labels := map[string]string{
		"conversation": "Casual Conversation",
		"interview":    "Structured Interview",
		"deep-dive":    "Investigative Deep Dive",
		"explainer":    "Educational Explainer",
		"debate":       "Point-Counterpoint",
		"news":         "News Briefing",
		"storytelling": "Narrative Storytelling",
		"challenger":   "Devil's Advocate",
	}
	if l, ok := labels[format]; ok {
		return l
	}
	return "Casual Conversation"
}

func formatLabelForPrompt(format string, voices int) string {
	hostDesc := "two-host"
	switch voices {
	case 1:
		hostDesc = "single-host"
	case 3:
		hostDesc = "three-host"
	}

	templates := map[string]string{
		"conversation": "%s podcast conversation",
		"interview":    "%s structured interview",
		"deep-dive":    "%s investigative deep dive",
		"explainer":    "%s educational explainer",
		"debate":       "%s point-counterpoint debate",
		"news":         "%s news briefing",
		"storytelling": "%s narrative storytelling episode",
		"challenger":   "%s devil's advocate session",
	}
	if t, ok := templates[format]; ok {
		return fmt.Sprintf(t, hostDesc)
	}
	return fmt.Sprintf("%s podcast conversation", hostDesc)
}

// formatDirective returns the structural prompt section for a show format,
// told to hosts built from a profile's topics rather than raw articles.
func formatDirective(format string) string {
	directives := map[string]string{
		"conversation": `STRUCTURE: Free-flowing conversation. Hosts riff naturally on the material, go on tangents,
circle back, and build on each other's ideas organically. No rigid segments — the conversation follows curiosity.
Topics emerge and flow rather than being formally introduced.`,

		"interview": `STRUCTURE: Structured interview format. The first host acts as interviewer with prepared
questions organized into clear chapters. The second acts as subject-matter expert giving detailed answers.
Guide the conversation through: (1) background/context, (2) key findings, (3) deep dive into specifics,
(4) implications and what's next.`,

		"deep-dive": `STRUCTURE: Investigative deep dive. Build the episode like a case being laid out — methodical,
evidence-layered, building to a conclusion. Start with the central question. Layer in evidence piece by piece.
Let hosts react to revelations in real time. Build tension toward a synthesis.`,

		"explainer": `STRUCTURE: Educational explainer. Start with the core concept at its simplest, then
progressively add complexity. Use a "wait, so does that mean..." pattern where one host asks clarifying
questions that push the explanation deeper. Structure: (1) hook, (2) basic concept, (3) how it works,
(4) surprising implications, (5) what this means going forward.`,

		"debate": `STRUCTURE: Point-counterpoint debate. Hosts take clearly opposing positions.
Structure: (1) frame the central question, (2) Position A with evidence, (3) Position B with evidence,
(4) direct rebuttals, (5) common ground or acknowledged disagreement, (6) synthesis. Disagreements must be
substantive and evidence-based, not performative.`,

		"news": `STRUCTURE: News briefing — tight, focused, single-story deep coverage.
(1) the headline, (2) context — why this matters, (3) the facts — key details and quotes,
(4) analysis — what this means and who's affected, (5) what's next. Keep it on ONE story per segment.`,

		"storytelling": `STRUCTURE: Narrative storytelling. Build each segment around a story arc:
(1) the hook, (2) setup — characters, context, stakes, (3) rising tension, (4) climax — the pivotal moment,
(5) resolution — what happened next. Use vivid scene-setting and emotional beats alongside analytical ones.`,

		"challenger": `STRUCTURE: Devil's advocate. The first host presents the topic and its conventional
wisdom. The second relentlessly challenges every claim and assumption — not to be contrarian, but to
stress-test the ideas. The first host must defend with evidence and concede when the challenge is valid.`,
	}
	if d, ok := directives[format]; ok {
		return d
	}
	return directives["conversation"]
}
