package scheduler

import (
	"context"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

// Reconcile rebuilds the fire decision for every enabled profile schedule
// from the profile table (spec.md §4.8). It is called on every poll tick
// and may also be called directly after a profile mutation so a newly
// enabled or rescheduled profile takes effect without waiting for the next
// tick.
func (s *Scheduler) Reconcile(ctx context.Context) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.log.Error("reconcile: list profiles", "error", err)
		return
	}

	now := time.Now()
	for _, p := range profiles {
		if !p.Schedule.Enabled {
			continue
		}
		due, ok := dueFireTime(p.Schedule, now, s.cfg.MisfireGrace)
		if !ok {
			continue
		}
		if p.Schedule.LastRun != nil && !due.After(*p.Schedule.LastRun) {
			continue // already fired for this slot; coalesces any ticks missed in between
		}
		s.onTrigger(ctx, p, due)
	}
}

// onTrigger starts a job for profile and, on success, records firedAt as
// the schedule's lastRun so the same slot never fires twice.
func (s *Scheduler) onTrigger(ctx context.Context, p model.Profile, firedAt time.Time) {
	log := s.log.With("profile_id", p.ID, "profile", p.Name)

	active, err := s.store.IsProfileJobActive(ctx, p.ID)
	if err != nil {
		log.Error("check active job", "error", err)
		return
	}
	if active {
		// One instance per profile at a time (spec.md §4.8). Don't advance
		// lastRun: retry on the next tick once the in-flight job finishes,
		// as long as we're still within the misfire grace window.
		log.Info("skipping trigger: a job for this profile is already in flight")
		return
	}

	jobID, err := s.starter.Start(ctx, p.ID, optionsFromProfile(p))
	if err != nil {
		log.Error("start scheduled job", "error", err)
		return
	}

	p.Schedule.LastRun = &firedAt
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		log.Error("record schedule lastRun", "error", err, "job_id", jobID)
		return
	}
	log.Info("scheduled job started", "job_id", jobID, "fired_at", firedAt)
}

// optionsFromProfile builds the default JobOptions for an automatically
// scheduled run. Scheduled runs are unattended, so editorial review is
// skipped and the job is marked recoverable so a server restart resumes it
// from the beginning rather than leaving it failed.
func optionsFromProfile(p model.Profile) model.JobOptions {
	return model.JobOptions{
		TopicCount:      p.TopicCount,
		DurationMinutes: p.TargetDurationMin,
		UseContinuity:   true,
		GenerateAudio:   true,
		IsRecoverable:   true,
	}
}

// dueFireTime returns the most recent scheduled fire time at or before now
// that has not yet passed the misfire grace window, coalescing any number
// of missed slots into the single most recent one. ok is false if no
// matching weekday/time exists (e.g. an empty or invalid schedule) or if
// the most recent slot already fell outside the grace window.
func dueFireTime(sched model.Schedule, now time.Time, grace time.Duration) (time.Time, bool) {
	loc := time.UTC
	if sched.Timezone != "" {
		if l, err := time.LoadLocation(sched.Timezone); err == nil {
			loc = l
		}
	}
	localNow := now.In(loc)

	for daysAgo := 0; daysAgo < 8; daysAgo++ {
		day := localNow.AddDate(0, 0, -daysAgo)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), sched.Hour, sched.Minute, 0, 0, loc)
		if candidate.After(localNow) {
			continue // only possible on daysAgo==0, when today's slot is still in the future
		}
		if !weekdayAllowed(candidate.Weekday(), sched.Weekdays) {
			continue
		}
		if grace > 0 && localNow.Sub(candidate) > grace {
			return time.Time{}, false
		}
		return candidate, true
	}
	return time.Time{}, false
}

func weekdayAllowed(day time.Weekday, allowed []int) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if int(day) == d {
			return true
		}
	}
	return false
}
