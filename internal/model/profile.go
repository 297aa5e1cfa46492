// Package model holds the domain entities shared across every pipeline
// component: profiles, content, topics, scripts, audio, episodes, and jobs.
package model

import "time"

// Host is one persona in a profile's podcast cast.
type Host struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Persona       string   `json:"persona"`
	VoiceID       string   `json:"voiceId"`
	SpeakingStyle string   `json:"speakingStyle"`
	Expertise     []string `json:"expertise"`
}

// SourceKind enumerates the kinds of Content Source a profile can configure.
type SourceKind string

const (
	SourceForum             SourceKind = "forum"
	SourceNewsAPI           SourceKind = "news-api"
	SourceRSS               SourceKind = "rss"
	SourceVideoTranscripts  SourceKind = "video-transcripts"
	SourceAggregatorBoard   SourceKind = "aggregator-board"
)

// ContentSource is one configured external source a profile aggregates from.
type ContentSource struct {
	ID          string         `json:"id"`
	Kind        SourceKind     `json:"kind"`
	Config      map[string]any `json:"config"`
	Priority    int            `json:"priority"`    // 1-10
	Credibility float64        `json:"credibility"` // 0-1
	Active      bool           `json:"active"`
}

// AvoidanceKind enumerates how long a Topic-Avoidance Rule applies.
type AvoidanceKind string

const (
	AvoidanceTemporary      AvoidanceKind = "temporary"
	AvoidancePermanent      AvoidanceKind = "permanent"
	AvoidanceReduceFrequency AvoidanceKind = "reduce-frequency"
)

// AvoidanceRule keeps the orchestrator from repeating a recently-covered
// or explicitly banned topic.
type AvoidanceRule struct {
	ID                 string        `json:"id"`
	Keyword            string        `json:"keyword"`
	Kind               AvoidanceKind `json:"kind"`
	Until              *time.Time    `json:"until,omitempty"`
	MinDaysBetweenMentions int       `json:"minDaysBetweenMentions"`
}

// Schedule is a profile's recurring trigger configuration (spec.md §4.8).
type Schedule struct {
	Enabled     bool   `json:"enabled"`
	Hour        int    `json:"hour"`     // 0-23, local to Timezone
	Minute      int    `json:"minute"`   // 0-59
	Weekdays    []int  `json:"weekdays"` // 0=Sunday .. 6=Saturday; empty = every day
	Timezone    string `json:"timezone"` // IANA zone name
	LastRun     *time.Time `json:"lastRun,omitempty"`
}

// Profile is a long-lived show configuration: audience, hosts, sources,
// schedule. Created and mutated by a user; never automatically destroyed.
type Profile struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Tone              string          `json:"tone"`
	Audience          string          `json:"audience"`
	Format            string          `json:"format"` // one of synth.FormatNames(); "" defaults to "conversation"
	TargetDurationMin int             `json:"targetDurationMinutes"`
	TopicCount        int             `json:"topicCount"`
	Hosts             []Host          `json:"hosts"`
	Sources           []ContentSource `json:"sources"`
	AvoidanceRules    []AvoidanceRule `json:"avoidanceRules"`
	Schedule          Schedule        `json:"schedule"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Slug returns a URL/filename-safe identifier derived from the profile name,
// used to build episode ids ("{profile-slug}-{YYYYMMDD}").
func (p Profile) Slug() string {
	return slugify(p.Name)
}
