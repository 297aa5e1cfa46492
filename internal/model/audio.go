package model

import "time"

// ContentType classifies an AudioSegment's place in the episode (spec.md §3).
type ContentType string

const (
	ContentIntro ContentType = "intro"
	ContentTopic ContentType = "topic"
	ContentOutro ContentType = "outro"
)

// AudioSegment is one stitched span of the final episode audio,
// corresponding to a script segment (or the intro/outro), with its offset
// into the full file for chapter markers and the RSS feed.
type AudioSegment struct {
	SequenceIndex    int         `json:"sequenceIndex"`
	TopicID          string      `json:"topicId,omitempty"`
	ContentType      ContentType `json:"contentType"`
	TopicHeadline    string      `json:"topicHeadline"`
	Transcript       string      `json:"transcript"`
	StartTimeSeconds float64     `json:"startTimeSeconds"`
	DurationSeconds  float64     `json:"durationSeconds"`
	LocalPath        string      `json:"localPath"`
}

// AudioEpisode is the fully rendered, stitched episode audio plus its
// segment manifest (spec.md §3, §4.6).
type AudioEpisode struct {
	LocalPath       string         `json:"localPath"`
	DurationSeconds float64        `json:"durationSeconds"`
	Segments        []AudioSegment `json:"segments"`
	SampleRate      int            `json:"sampleRate"`
	BitrateKbps     int            `json:"bitrateKbps"`
	SkippedLines    int            `json:"skippedLines"` // lines whose synthesis failed and were dropped
}

// Episode is the final, persisted result of a completed generation job
// (spec.md §3).
type Episode struct {
	ID              string        `json:"id"` // "{profile-slug}-{YYYYMMDD}"
	ProfileID       string        `json:"profileId"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	PublishedAt     time.Time     `json:"publishedAt"`
	DurationSeconds float64       `json:"durationSeconds"`
	AudioURL        string        `json:"audioUrl"`
	Script          PodcastScript `json:"script"`
	Segments        []AudioSegment `json:"segments"`
	Topics          []string      `json:"topics"` // final headlines, for topic-history recording
	NewsletterURL   string        `json:"newsletterUrl,omitempty"`
}

// TopicHistoryEntry records a topic a profile has already covered, consulted
// by the clusterer/aggregator to apply avoidance rules and by the
// synthesizer for continuity (spec.md §3, §4.2, §4.8).
type TopicHistoryEntry struct {
	ProfileID      string    `json:"profileId"`
	EpisodeID      string    `json:"episodeId"`
	Headline       string    `json:"headline"`
	Category       string    `json:"category"`
	Summary        string    `json:"summary"`
	KeyPoints      []string  `json:"keyPoints"`
	FactsMentioned []string  `json:"factsMentioned"`
	Ongoing        bool      `json:"ongoing"`
	FollowUpNotes  string    `json:"followUpNotes,omitempty"`
	Importance     float64   `json:"importance"` // 0-1
	CoveredAt      time.Time `json:"coveredAt"`
}
