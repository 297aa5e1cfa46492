package cluster

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// computeMetrics fills totalEngagement, sourceDiversity, timeSpan, and
// priorityScore from a cluster's members. Priority formula grounded on
// original_source's TopicCluster.calculate_metrics:
// min(10, engagement/100 + diversity*2 + 5·isBreaking + 3·isTrending).
func computeMetrics(cl *model.TopicCluster) {
	if len(cl.Members) == 0 {
		return
	}

	var total float64
	kinds := map[model.SourceKind]bool{}
	var minTime, maxTime time.Time
	for i, m := range cl.Members {
		total += m.EngagementScore()
		kinds[m.SourceKind] = true
		if i == 0 || m.PublishedAt.Before(minTime) {
			minTime = m.PublishedAt
		}
		if i == 0 || m.PublishedAt.After(maxTime) {
			maxTime = m.PublishedAt
		}
	}
	cl.TotalEngagement = total
	cl.SourceDiversity = len(kinds)
	if len(cl.Members) >= 2 {
		cl.TimeSpan = maxTime.Sub(minTime)
	}
	recomputePriority(cl)
}

func recomputePriority(cl *model.TopicCluster) {
	score := cl.TotalEngagement/100.0 + float64(cl.SourceDiversity)*2
	if cl.IsBreaking {
		score += 5
	}
	if cl.IsTrending {
		score += 3
	}
	cl.PriorityScore = math.Min(10, score)
}

// detectTrends flags breaking and trending clusters, grounded on
// original_source's SemanticClusterer._detect_trends.
func detectTrends(cl *model.TopicCluster) {
	if len(cl.Members) == 0 {
		return
	}
	now := time.Now()
	recent := 0
	for _, m := range cl.Members {
		if now.Sub(m.PublishedAt) < breakingRecentWindow {
			recent++
		}
	}
	recentRatio := float64(recent) / float64(len(cl.Members))

	if recentRatio > breakingRecentRatioFloor && cl.TotalEngagement > breakingEngagementFloor {
		cl.IsBreaking = true
	}
	if cl.SourceDiversity >= trendingSourceDiversity && cl.TotalEngagement > trendingEngagementFloor {
		cl.IsTrending = true
	}
	recomputePriority(cl)
}

// centroid averages the embedding vectors of every member.
func centroid(members []model.RawContentItem) []float64 {
	var dim int
	for _, m := range members {
		if len(m.Embedding) > dim {
			dim = len(m.Embedding)
		}
	}
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	count := 0
	for _, m := range members {
		if len(m.Embedding) != dim {
			continue
		}
		for i, v := range m.Embedding {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

// coherence is the average pairwise cosine similarity among a cluster's
// embeddings; 1.0 for a trivial single-item cluster.
func coherence(clusterCentroid []float64, members []model.RawContentItem) float64 {
	if len(members) < 2 {
		return 1.0
	}
	var total float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			total += 1 - cosineDistance(members[i].Embedding, members[j].Embedding)
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return total / float64(pairs)
}

// cosineDistance is 1 - cosine similarity; 1.0 (maximally distant) when
// either vector is empty or dimensions mismatch.
func cosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1.0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1.0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - sim
}

// mergeSimilarClusters merges clusters whose centroids are more similar than
// threshold, combining members and re-deriving metrics. Grounded on
// original_source's SemanticClusterer.merge_similar_clusters.
func mergeSimilarClusters(clusters []model.TopicCluster, threshold float64) []model.TopicCluster {
	if len(clusters) < 2 {
		return clusters
	}
	merged := make([]bool, len(clusters))
	out := make([]model.TopicCluster, 0, len(clusters))

	for i := range clusters {
		if merged[i] {
			continue
		}
		base := clusters[i]
		for j := i + 1; j < len(clusters); j++ {
			if merged[j] {
				continue
			}
			if 1-cosineDistance(base.Centroid, clusters[j].Centroid) > threshold {
				base.Members = append(base.Members, clusters[j].Members...)
				merged[j] = true
			}
		}
		base.Centroid = centroid(base.Members)
		computeMetrics(&base)
		base.Coherence = coherence(base.Centroid, base.Members)
		detectTrends(&base)
		out = append(out, base)
	}
	return out
}

func clusterID(members []model.RawContentItem) string {
	h := md5.New()
	for _, m := range members {
		h.Write([]byte(m.ID))
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}
