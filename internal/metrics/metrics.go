// Package metrics holds the Prometheus collectors shared by the Job
// Orchestrator and the Content Aggregator's connectors, served by the HTTP
// API's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts generation jobs by terminal status (spec.md §3's
	// JobStatus enum), incremented once per job when it reaches a terminal
	// state.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podcastos_jobs_total",
		Help: "Generation jobs by terminal status.",
	}, []string{"status"})

	// StageDurationSeconds records how long a job spent in each stage,
	// measured from one advance() call to the next (spec.md §4.7 stages).
	StageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "podcastos_stage_duration_seconds",
		Help:    "Time spent in each generation job stage.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34m
	}, []string{"stage"})

	// ConnectorErrorsTotal counts Fetch failures per source kind, isolated
	// per-source so one misbehaving connector never aborts aggregation.
	ConnectorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podcastos_connector_errors_total",
		Help: "Content source fetch failures by connector kind.",
	}, []string{"kind"})
)
