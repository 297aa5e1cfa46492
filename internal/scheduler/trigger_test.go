package scheduler

import (
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

func TestDueFireTimeTodayBeforeNowFires(t *testing.T) {
	now := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC) // Friday 09:30
	sched := model.Schedule{Hour: 9, Minute: 0, Timezone: "UTC"}

	due, ok := dueFireTime(sched, now, time.Hour)
	if !ok {
		t.Fatalf("dueFireTime: expected a due slot")
	}
	want := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("dueFireTime = %v, want %v", due, want)
	}
}

func TestDueFireTimeTodayAfterNowLooksBack(t *testing.T) {
	now := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC) // Friday 08:00, before today's 09:00 slot
	sched := model.Schedule{Hour: 9, Minute: 0, Timezone: "UTC"}

	due, ok := dueFireTime(sched, now, 48*time.Hour)
	if !ok {
		t.Fatalf("dueFireTime: expected yesterday's slot to still be due")
	}
	want := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("dueFireTime = %v, want yesterday's slot %v", due, want)
	}
}

func TestDueFireTimeRespectsWeekdays(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC) // Friday == weekday 5
	sched := model.Schedule{Hour: 9, Minute: 0, Timezone: "UTC", Weekdays: []int{1, 3}} // Mon, Wed only

	due, ok := dueFireTime(sched, now, 7*24*time.Hour)
	if !ok {
		t.Fatalf("dueFireTime: expected a due slot on the most recent Wednesday")
	}
	if due.Weekday() != time.Wednesday {
		t.Fatalf("dueFireTime weekday = %v, want Wednesday", due.Weekday())
	}
}

func TestDueFireTimeMisfireGraceSkipsStaleSlot(t *testing.T) {
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC).Add(3 * time.Hour) // 3 hours after the slot
	sched := model.Schedule{Hour: 9, Minute: 0, Timezone: "UTC"}

	_, ok := dueFireTime(sched, now, time.Hour)
	if ok {
		t.Fatalf("dueFireTime: expected stale slot to be skipped under a 1-hour grace window")
	}
}

func TestDueFireTimeCoalescesAcrossMissedDays(t *testing.T) {
	// Every day's slot has passed for the last several days; only the most
	// recent one should ever be returned, never a backlog.
	now := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	sched := model.Schedule{Hour: 9, Minute: 0, Timezone: "UTC"}

	due, ok := dueFireTime(sched, now, time.Hour)
	if !ok {
		t.Fatalf("dueFireTime: expected a due slot")
	}
	if due.Day() != 31 {
		t.Fatalf("dueFireTime = %v, want today's slot (coalesced), not an older backlog entry", due)
	}
}

func TestWeekdayAllowedEmptyMeansEveryDay(t *testing.T) {
	if !weekdayAllowed(time.Sunday, nil) {
		t.Fatalf("weekdayAllowed with empty list should allow every day")
	}
}
