package llm

import (
	"regexp"
	"strings"
)

// Model preambles the research/synthesis parsers need to strip before the
// real content starts. Grounded on the teacher's scratchpad/fence stripping
// in script.parseScript, generalized to the wider set of preambles the
// original Python implementation scrubbed from research responses.
var preamblePhrases = []string{
	"okay, i will",
	"okay i will",
	"sure, i can",
	"sure i can",
	"here's a comprehensive",
	"here is a comprehensive",
	"certainly! here",
	"of course! here",
	"i'd be happy to",
	"let me provide",
}

var scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
var leadingHeaderRe = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s.*$`)

// StripScratchpad removes <scratchpad>...</scratchpad> blocks some models
// emit as visible chain-of-thought.
func StripScratchpad(text string) string {
	return scratchpadRe.ReplaceAllString(text, "")
}

// StripCodeFences extracts the body of the first ```...``` fenced block, if
// present; otherwise returns the text unchanged.
func StripCodeFences(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

// StripPreamble removes a leading conversational preamble line/sentence
// ("Okay, I will...", "Sure, I can...") and any leading markdown headers.
func StripPreamble(text string) string {
	trimmed := strings.TrimLeft(text, " \t\n\r")
	lower := strings.ToLower(trimmed)
	for _, phrase := range preamblePhrases {
		if strings.HasPrefix(lower, phrase) {
			if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
				trimmed = trimmed[idx+1:]
			} else {
				trimmed = ""
			}
			break
		}
	}
	trimmed = leadingHeaderRe.ReplaceAllString(trimmed, "")
	return strings.TrimSpace(trimmed)
}

// ExtractJSONObject returns the substring spanning the first "{" and the
// last "}" in text, which recovers a JSON object even when the model wraps
// it in prose. Falls back to the original text when no braces are found.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// Normalize runs the full tolerant-parse ladder: strip scratchpad, strip
// code fences, strip conversational preamble, extract the JSON object.
func Normalize(text string) string {
	text = StripScratchpad(text)
	text = StripCodeFences(text)
	text = StripPreamble(text)
	text = ExtractJSONObject(text)
	return strings.TrimSpace(text)
}

// Truncate shortens s to maxLen runes, appending "..." when truncated. Used
// to keep raw-response snippets readable in error messages and logs.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
