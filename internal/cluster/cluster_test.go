package cluster

import (
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

func itemWithEmbedding(id string, engagement int, embedding []float64, published time.Time) model.RawContentItem {
	score := engagement
	return model.RawContentItem{
		ID:          id,
		Title:       "Title " + id,
		SourceKind:  model.SourceRSS,
		Score:       &score,
		Embedding:   embedding,
		PublishedAt: published,
	}
}

func TestDensityGroupSeparatesDistantItems(t *testing.T) {
	now := time.Now()
	items := []model.RawContentItem{
		itemWithEmbedding("a", 10, []float64{1, 0}, now),
		itemWithEmbedding("b", 10, []float64{0.98, 0.02}, now),
		itemWithEmbedding("c", 60, []float64{0, 1}, now),
	}
	groups, noise := densityGroup(items)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("densityGroup() groups = %+v, want one group of 2", groups)
	}
	if len(noise) != 1 || noise[0].ID != "c" {
		t.Fatalf("densityGroup() noise = %+v, want item c", noise)
	}
}

func TestComputeMetricsCapsPriorityAtTen(t *testing.T) {
	cl := model.TopicCluster{
		Members: []model.RawContentItem{
			itemWithEmbedding("a", 5000, []float64{1, 0}, time.Now()),
		},
	}
	computeMetrics(&cl)
	if cl.PriorityScore > 10 {
		t.Fatalf("PriorityScore = %f, want <= 10", cl.PriorityScore)
	}
}

func TestMergeSimilarClustersCombinesNearDuplicates(t *testing.T) {
	clusters := []model.TopicCluster{
		{ID: "1", Centroid: []float64{1, 0}, Members: []model.RawContentItem{itemWithEmbedding("a", 1, []float64{1, 0}, time.Now())}},
		{ID: "2", Centroid: []float64{0.99, 0.01}, Members: []model.RawContentItem{itemWithEmbedding("b", 1, []float64{0.99, 0.01}, time.Now())}},
	}
	out := mergeSimilarClusters(clusters, 0.85)
	if len(out) != 1 {
		t.Fatalf("mergeSimilarClusters() returned %d clusters, want 1", len(out))
	}
	if len(out[0].Members) != 2 {
		t.Fatalf("merged cluster has %d members, want 2", len(out[0].Members))
	}
}
