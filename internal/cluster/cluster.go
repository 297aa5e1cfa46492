// Package cluster implements the Semantic Topic Clusterer (C3): groups raw
// content items by embedding similarity, computes cluster metrics and
// breaking/trending flags, names clusters via LLM, and merges near-duplicate
// clusters. Grounded on original_source's
// src/intelligence/clustering/clusterer.py (HDBSCAN-style density
// clustering, ported to a Go-native density walk since no pack dependency
// wraps HDBSCAN) and src/intelligence/models/content.py's TopicCluster
// metrics/priority formula.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// minClusterSize and clusterSelectionEpsilon mirror the teacher's HDBSCAN
// configuration (min_cluster_size=2, cluster_selection_epsilon=0.3): an item
// joins a cluster only if its cosine distance to the cluster's seed item is
// within epsilon, and a cluster must reach minClusterSize members to avoid
// being flagged noise.
const (
	minClusterSize           = 2
	clusterSelectionEpsilon  = 0.3
	breakingEngagementFloor  = 500.0
	breakingRecentRatioFloor = 0.7
	breakingRecentWindow     = 6 * time.Hour
	trendingEngagementFloor  = 200.0
	trendingSourceDiversity  = 2
	noiseEngagementFloor     = 50.0
	mergeSimilarityThreshold = 0.85
)

// Embedder computes a semantic embedding vector for a piece of text. An
// external collaborator (e.g. a hosted embeddings API); not implemented in
// this package.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Namer produces a short, human name and a brief summary for a cluster of
// titles, backed by internal/llm.
type Namer interface {
	NameCluster(ctx context.Context, titles []string) (name, summary string, err error)
}

// Clusterer groups raw content items into topic clusters.
type Clusterer struct {
	embedder Embedder
	namer    Namer
}

// New constructs a Clusterer.
func New(embedder Embedder, namer Namer) *Clusterer {
	return &Clusterer{embedder: embedder, namer: namer}
}

// ClusterContents groups items by embedding similarity, computes per-cluster
// metrics, flags breaking/trending clusters, names every cluster, and
// returns them sorted by priority score descending.
func (c *Clusterer) ClusterContents(ctx context.Context, items []model.RawContentItem) ([]model.TopicCluster, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) == 1 {
		return []model.TopicCluster{c.singleItemCluster(ctx, items[0])}, nil
	}

	items, err := c.ensureEmbeddings(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("cluster: compute embeddings: %w", err)
	}

	groups, noise := densityGroup(items)

	clusters := make([]model.TopicCluster, 0, len(groups)+len(noise))
	for _, members := range groups {
		clusters = append(clusters, c.buildCluster(ctx, members))
	}
	for _, item := range noise {
		if item.EngagementScore() > noiseEngagementFloor {
			clusters = append(clusters, c.singleItemCluster(ctx, item))
		}
	}

	clusters = mergeSimilarClusters(clusters, mergeSimilarityThreshold)

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].PriorityScore > clusters[j].PriorityScore
	})
	return clusters, nil
}

func (c *Clusterer) ensureEmbeddings(ctx context.Context, items []model.RawContentItem) ([]model.RawContentItem, error) {
	var need []int
	for i, item := range items {
		if len(item.Embedding) == 0 {
			need = append(need, i)
		}
	}
	if len(need) == 0 {
		return items, nil
	}
	texts := make([]string, len(need))
	for j, idx := range need {
		texts[j] = items[idx].Title + "\n" + items[idx].Body
	}
	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(need) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(embeddings), len(need))
	}
	for j, idx := range need {
		items[idx].Embedding = embeddings[j]
	}
	return items, nil
}

// densityGroup is a simplified density-based clustering walk: starting from
// each unvisited item, it gathers every other item within
// clusterSelectionEpsilon cosine distance into one group. Groups smaller than
// minClusterSize are reported as noise, mirroring HDBSCAN's label=-1.
func densityGroup(items []model.RawContentItem) (groups [][]model.RawContentItem, noise []model.RawContentItem) {
	n := len(items)
	visited := make([]bool, n)

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		group := []model.RawContentItem{items[i]}
		for j := i + 1; j < n; j++ {
			if visited[j] {
				continue
			}
			if cosineDistance(items[i].Embedding, items[j].Embedding) <= clusterSelectionEpsilon {
				visited[j] = true
				group = append(group, items[j])
			}
		}
		if len(group) >= minClusterSize {
			groups = append(groups, group)
		} else {
			noise = append(noise, group...)
		}
	}
	return groups, noise
}

func (c *Clusterer) buildCluster(ctx context.Context, members []model.RawContentItem) model.TopicCluster {
	cl := model.TopicCluster{
		ID:       clusterID(members),
		Members:  members,
		Centroid: centroid(members),
	}
	computeMetrics(&cl)
	cl.Coherence = coherence(cl.Centroid, members)
	detectTrends(&cl)
	c.nameCluster(ctx, &cl)
	return cl
}

func (c *Clusterer) singleItemCluster(ctx context.Context, item model.RawContentItem) model.TopicCluster {
	cl := model.TopicCluster{
		ID:        clusterID([]model.RawContentItem{item}),
		Members:   []model.RawContentItem{item},
		Centroid:  item.Embedding,
		Coherence: 1.0,
	}
	computeMetrics(&cl)
	detectTrends(&cl)
	c.nameCluster(ctx, &cl)
	return cl
}

func (c *Clusterer) nameCluster(ctx context.Context, cl *model.TopicCluster) {
	titles := make([]string, len(cl.Members))
	for i, m := range cl.Members {
		titles[i] = m.Title
	}
	if c.namer != nil {
		if name, summary, err := c.namer.NameCluster(ctx, titles); err == nil && name != "" {
			cl.Name = name
			cl.Summary = summary
			return
		}
	}
	cl.Name = fallbackClusterName(titles)
	cl.Summary = fallbackClusterSummary(cl.Members)
}

// fallbackClusterName picks the three most common significant words across
// titles, title-cased, matching the teacher's placeholder naming before LLM
// naming is available (or when it fails).
func fallbackClusterName(titles []string) string {
	counts := map[string]int{}
	var order []string
	for _, title := range titles {
		for _, w := range strings.Fields(strings.ToLower(title)) {
			if len(w) <= 2 || stopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	top := order
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) == 0 {
		if len(titles) > 0 {
			return truncate(titles[0], 50)
		}
		return "Untitled topic"
	}
	for i, w := range top {
		top[i] = titleCase(w)
	}
	return truncate(strings.Join(top, " "), 50)
}

func fallbackClusterSummary(members []model.RawContentItem) string {
	if len(members) == 0 {
		return ""
	}
	top := members[0]
	for _, m := range members[1:] {
		if m.EngagementScore() > top.EngagementScore() {
			top = m
		}
	}
	if top.Body != "" {
		return truncate(top.Body, 300)
	}
	return top.Title
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true, "and": true,
	"or": true, "but": true, "with": true, "by": true, "from": true, "this": true, "that": true,
	"it": true, "be": true, "as": true, "what": true, "how": true, "why": true, "when": true,
	"where": true, "who": true,
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func titleCase(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
