package model

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// RawContentItem is one piece of fetched content, normalized from any
// source kind. Produced by connectors, consumed by the clusterer; not
// persisted long-term (spec.md §3).
type RawContentItem struct {
	ID            string    `json:"id"` // hash(sourceKind + url)
	SourceKind    SourceKind `json:"sourceKind"`
	SourceName    string    `json:"sourceName"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	URL           string    `json:"url,omitempty"`
	Author        string    `json:"author,omitempty"`
	PublishedAt   time.Time `json:"publishedAt"`
	FetchedAt     time.Time `json:"fetchedAt"`
	Score         *int      `json:"score,omitempty"`
	Comments      *int      `json:"comments,omitempty"`
	Shares        *int      `json:"shares,omitempty"`
	ContentHash   string    `json:"contentHash,omitempty"`
	Embedding     []float64 `json:"embedding,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
}

// ItemID derives the stable identifier for a raw content item:
// hash(sourceKind + url). Computing it twice for the same inputs gives the
// same value (spec.md §8 round-trip law).
func ItemID(sourceKind SourceKind, url string) string {
	sum := md5.Sum([]byte(string(sourceKind) + "|" + url))
	return hex.EncodeToString(sum[:])
}

// ComputeContentHash derives the dedup hash from lower(title)+lower(body[:500]),
// grounded on original_source's RawContent.compute_hash.
func ComputeContentHash(title, body string) string {
	b := body
	if len(b) > 500 {
		b = b[:500]
	}
	content := strings.ToLower(strings.TrimSpace(title)) + strings.ToLower(strings.TrimSpace(b))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EngagementScore is the raw per-item engagement used by both the ranker
// (C2) and the trend detector (C3): score + 2*comments.
func (r RawContentItem) EngagementScore() float64 {
	var score, comments int
	if r.Score != nil {
		score = *r.Score
	}
	if r.Comments != nil {
		comments = *r.Comments
	}
	return float64(score) + 2*float64(comments)
}
