// Package scheduler fires generation jobs on each profile's configured
// recurring schedule (spec.md §4.8, C8). It polls the profile table on an
// interval and reconciles one fire decision per profile per tick rather
// than maintaining a timer per profile, in the tradition of a ticker-driven
// cron loop rather than an external cron library (none exists in the
// dependency pack).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// ProfileStore is the subset of store.Store the scheduler needs to list
// profiles and persist a profile's lastRun after triggering it.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, p model.Profile) error
	IsProfileJobActive(ctx context.Context, profileID string) (bool, error)
}

// Starter is the orchestrator operation the scheduler drives.
type Starter interface {
	Start(ctx context.Context, profileID string, opts model.JobOptions) (string, error)
}

// Config controls the scheduler's poll cadence and misfire tolerance.
type Config struct {
	// PollInterval is how often reconcile() re-scans the profile table.
	PollInterval time.Duration
	// MisfireGrace is how long after a missed fire time the scheduler will
	// still trigger it; beyond this the slot is skipped and the scheduler
	// waits for the next occurrence (spec.md §4.8: "1-hour misfire grace").
	MisfireGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.MisfireGrace <= 0 {
		c.MisfireGrace = time.Hour
	}
	return c
}

// Scheduler runs a single poll loop that decides, on every tick, which
// enabled profile schedules are due; it keeps no per-profile timer.
type Scheduler struct {
	starter Starter
	store   ProfileStore
	log     *slog.Logger
	cfg     Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Scheduler. orchestrator is the Starter driving job creation;
// store lists and mutates profiles.
func New(orchestrator Starter, store ProfileStore, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		starter: orchestrator,
		store:   store,
		log:     logger.With("component", "scheduler"),
		cfg:     cfg.withDefaults(),
	}
}

// Start begins the poll loop in a goroutine. It runs reconcile() once
// immediately (so schedules due at startup are not delayed a full poll
// interval) and then on every tick until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.log.Info("starting scheduler", "poll_interval", s.cfg.PollInterval, "misfire_grace", s.cfg.MisfireGrace)
	go s.run(ctx)
	return nil
}

// Stop halts the poll loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.Reconcile(ctx)
	for {
		select {
		case <-ticker.C:
			s.Reconcile(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
