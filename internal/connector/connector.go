// Package connector implements Content Source Connectors (C1): one
// fetcher per configured source kind, normalizing into model.RawContentItem.
// Grounded on the teacher's internal/ingest package (HTTP client setup,
// User-Agent, timeout, error-wrapping idiom) and original_source's
// aggregators (engagement scoring, per-source credibility/priority).
package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// fetchTimeout bounds every connector's outbound HTTP call.
const fetchTimeout = 30 * time.Second

// Connector fetches recent content from one external source.
type Connector interface {
	// Fetch returns up to limit items in the order the source lists them;
	// items are not re-sorted by publish time. A connector never
	// panics or returns a fatal error for a single bad item: transient
	// failures are logged and an empty (or partial) slice is returned.
	Fetch(ctx context.Context, limit int) ([]model.RawContentItem, error)
	// Kind identifies which model.SourceKind this connector implements.
	Kind() model.SourceKind
}

// CommentFetcher is implemented by connectors that can enrich an item with
// its discussion thread (used by the researcher for community sentiment).
type CommentFetcher interface {
	FetchComments(ctx context.Context, item model.RawContentItem, limit int) ([]string, error)
}

// StatsProvider is implemented by connectors that can report operational
// health, surfaced on the aggregation stage's activity log.
type StatsProvider interface {
	Stats() Stats
}

// Stats is the error/fetch counters a connector accumulates across calls.
type Stats struct {
	FetchCount   int
	ErrorCount   int
	LastError    string
	LastFetchedAt time.Time
}

// New constructs the Connector for one configured content source.
func New(src model.ContentSource) (Connector, error) {
	switch src.Kind {
	case model.SourceForum:
		return newForumConnector(src)
	case model.SourceNewsAPI:
		return newNewsAPIConnector(src)
	case model.SourceRSS:
		return newRSSConnector(src)
	case model.SourceVideoTranscripts:
		return newVideoTranscriptConnector(src)
	case model.SourceAggregatorBoard:
		return newAggregatorBoardConnector(src)
	default:
		return nil, fmt.Errorf("connector: unknown source kind %q", src.Kind)
	}
}

func configString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func configStringSlice(cfg map[string]any, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// matchesKeywords applies include/exclude keyword filtering to a title,
// case-insensitively. Empty include matches everything.
func matchesKeywords(title string, include, exclude []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range exclude {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, kw := range include {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
