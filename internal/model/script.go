package model

import "time"

// DialogueLine is one spoken line attributed to a host.
type DialogueLine struct {
	Speaker string `json:"speaker"` // matches a Host.Name, lowercased
	Text    string `json:"text"`
}

// ScriptSegment covers one topic within the episode body.
type ScriptSegment struct {
	TopicID       string         `json:"topicId"`
	TopicHeadline string         `json:"topicHeadline"`
	Lines         []DialogueLine `json:"lines"`
}

// PodcastScript is the three-part synthesized script: intro, one segment
// per topic, and outro (spec.md §3, §4.5).
type PodcastScript struct {
	Intro              []DialogueLine  `json:"intro"`
	Segments           []ScriptSegment `json:"segments"`
	Outro              []DialogueLine  `json:"outro"`
	Title              string          `json:"title"`
	EstimatedDuration  time.Duration   `json:"estimatedDuration"`
	WordCount          int             `json:"wordCount"`
	EditorialNotes     []string        `json:"editorialNotes,omitempty"`
}

// AllLines flattens intro, every segment, and outro into one ordered slice,
// the unit the audio renderer consumes.
func (s PodcastScript) AllLines() []DialogueLine {
	lines := make([]DialogueLine, 0, len(s.Intro)+len(s.Outro)+len(s.Segments)*4)
	lines = append(lines, s.Intro...)
	for _, seg := range s.Segments {
		lines = append(lines, seg.Lines...)
	}
	lines = append(lines, s.Outro...)
	return lines
}

// WordsTotal counts words across every dialogue line, used to derive
// EstimatedDuration via a words-per-minute heuristic.
func (s PodcastScript) WordsTotal() int {
	total := 0
	for _, l := range s.AllLines() {
		total += len(splitWords(l.Text))
	}
	return total
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
