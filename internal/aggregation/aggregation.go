// Package aggregation implements the Content Aggregator (C2): concurrent
// fan-out across every active connector, dedup, and weighted-engagement
// ranking. Grounded on original_source's ContentRanker.gather_all_content
// (concurrent fetch, per-source exception isolation) and content_ranker.py's
// scoring idea, adapted to Go's errgroup/goroutine idiom as shown in the
// teacher's pipeline fan-out style.
package aggregation

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/apresai/podcastos/internal/connector"
	"github.com/apresai/podcastos/internal/metrics"
	"github.com/apresai/podcastos/internal/model"
)

// Aggregator fetches, dedups, and ranks content across a profile's sources.
type Aggregator struct {
	logger *slog.Logger
}

// New constructs an Aggregator.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// FetchAll fans out one Fetch call per active source concurrently, isolating
// per-source failures, then dedups and ranks the combined result.
func (a *Aggregator) FetchAll(ctx context.Context, sources []model.ContentSource, limitPerSource int) ([]model.RawContentItem, error) {
	conns := make([]connector.Connector, 0, len(sources))
	for _, src := range sources {
		if !src.Active {
			continue
		}
		c, err := connector.New(src)
		if err != nil {
			a.logger.Warn("skipping misconfigured source", "kind", src.Kind, "error", err)
			continue
		}
		conns = append(conns, c)
	}

	results := make([][]model.RawContentItem, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range conns {
		i, c := i, c
		g.Go(func() error {
			items, err := c.Fetch(gctx, limitPerSource)
			if err != nil {
				// Transient source failure never aborts the whole stage.
				a.logger.Warn("connector fetch failed", "kind", c.Kind(), "error", err)
				metrics.ConnectorErrorsTotal.WithLabelValues(string(c.Kind())).Inc()
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.RawContentItem
	for _, items := range results {
		all = append(all, items...)
	}

	deduped := dedupe(all)
	rank(deduped, sources)
	return deduped, nil
}

// dedupe drops items sharing a URL or the first 50 lowercased, stripped
// characters of their title, keeping the first copy in input (source) order;
// ranking happens afterwards.
func dedupe(items []model.RawContentItem) []model.RawContentItem {
	seenURL := make(map[string]bool)
	seenTitle := make(map[string]bool)
	out := make([]model.RawContentItem, 0, len(items))
	for _, item := range items {
		titleKey := titlePrefix(item.Title)
		if item.URL != "" && seenURL[item.URL] {
			continue
		}
		if titleKey != "" && seenTitle[titleKey] {
			continue
		}
		if item.URL != "" {
			seenURL[item.URL] = true
		}
		if titleKey != "" {
			seenTitle[titleKey] = true
		}
		out = append(out, item)
	}
	return out
}

func titlePrefix(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if len(t) > 50 {
		t = t[:50]
	}
	return t
}

// rank sorts items descending by weighted engagement:
// (score + 2*comments) * (sourcePriority/10) * sourceCredibility.
func rank(items []model.RawContentItem, sources []model.ContentSource) {
	bySourceName := make(map[model.SourceKind]model.ContentSource, len(sources))
	for _, src := range sources {
		bySourceName[src.Kind] = src
	}

	weight := func(item model.RawContentItem) float64 {
		src, ok := bySourceName[item.SourceKind]
		priority, credibility := 5.0, 0.5
		if ok {
			priority, credibility = float64(src.Priority), src.Credibility
		}
		return item.EngagementScore() * (priority / 10.0) * credibility
	}

	sort.SliceStable(items, func(i, j int) bool {
		return weight(items[i]) > weight(items[j])
	})
}
