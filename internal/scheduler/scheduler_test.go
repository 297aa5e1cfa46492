package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

type fakeStarter struct {
	started []string
	err     error
}

func (f *fakeStarter) Start(ctx context.Context, profileID string, opts model.JobOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.started = append(f.started, profileID)
	return "job-" + profileID, nil
}

type fakeProfileStore struct {
	profiles []model.Profile
	active   map[string]bool
	updated  []model.Profile
}

func (f *fakeProfileStore) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	return f.profiles, nil
}

func (f *fakeProfileStore) UpdateProfile(ctx context.Context, p model.Profile) error {
	f.updated = append(f.updated, p)
	for i := range f.profiles {
		if f.profiles[i].ID == p.ID {
			f.profiles[i] = p
		}
	}
	return nil
}

func (f *fakeProfileStore) IsProfileJobActive(ctx context.Context, profileID string) (bool, error) {
	return f.active[profileID], nil
}

func TestReconcileStartsDueProfileAndRecordsLastRun(t *testing.T) {
	now := time.Now().UTC()
	sched := model.Schedule{Enabled: true, Hour: now.Hour(), Minute: now.Minute(), Timezone: "UTC"}

	starter := &fakeStarter{}
	store := &fakeProfileStore{
		profiles: []model.Profile{{ID: "p1", Name: "Daily", Schedule: sched}},
		active:   map[string]bool{},
	}

	s := New(starter, store, Config{MisfireGrace: time.Hour}, nil)
	s.Reconcile(context.Background())

	if len(starter.started) != 1 || starter.started[0] != "p1" {
		t.Fatalf("started = %v, want [p1]", starter.started)
	}
	if len(store.updated) != 1 || store.updated[0].Schedule.LastRun == nil {
		t.Fatalf("expected lastRun to be recorded after trigger")
	}
}

func TestReconcileSkipsDisabledProfile(t *testing.T) {
	starter := &fakeStarter{}
	store := &fakeProfileStore{
		profiles: []model.Profile{{ID: "p1", Schedule: model.Schedule{Enabled: false}}},
		active:   map[string]bool{},
	}

	New(starter, store, Config{}, nil).Reconcile(context.Background())
	if len(starter.started) != 0 {
		t.Fatalf("started = %v, want none for a disabled schedule", starter.started)
	}
}

func TestReconcileSkipsAlreadyFiredSlot(t *testing.T) {
	now := time.Now().UTC()
	lastRun := now
	sched := model.Schedule{Enabled: true, Hour: now.Hour(), Minute: now.Minute(), Timezone: "UTC", LastRun: &lastRun}

	starter := &fakeStarter{}
	store := &fakeProfileStore{
		profiles: []model.Profile{{ID: "p1", Schedule: sched}},
		active:   map[string]bool{},
	}

	New(starter, store, Config{MisfireGrace: time.Hour}, nil).Reconcile(context.Background())
	if len(starter.started) != 0 {
		t.Fatalf("started = %v, want none: slot already recorded as run", starter.started)
	}
}

func TestReconcileSkipsProfileWithActiveJob(t *testing.T) {
	now := time.Now().UTC()
	sched := model.Schedule{Enabled: true, Hour: now.Hour(), Minute: now.Minute(), Timezone: "UTC"}

	starter := &fakeStarter{}
	store := &fakeProfileStore{
		profiles: []model.Profile{{ID: "p1", Schedule: sched}},
		active:   map[string]bool{"p1": true},
	}

	New(starter, store, Config{MisfireGrace: time.Hour}, nil).Reconcile(context.Background())
	if len(starter.started) != 0 {
		t.Fatalf("started = %v, want none: a job is already in flight for this profile", starter.started)
	}
	if len(store.updated) != 0 {
		t.Fatalf("lastRun should not advance while the trigger was skipped")
	}
}
