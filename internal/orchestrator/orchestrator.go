// Package orchestrator implements the Job Orchestrator (C7): the state
// machine that drives one Generation Job from pending through aggregation,
// clustering, research, scripting, optional human review, audio rendering,
// and persistence. Grounded on internal/mcpserver/tasks.go's TaskManager —
// the same cancel-map-plus-goroutine shape, generalized from one pipeline
// call into the explicit named-stage machine spec.md §4.7 describes.
package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apresai/podcastos/internal/aggregation"
	"github.com/apresai/podcastos/internal/cluster"
	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/research"
	"github.com/apresai/podcastos/internal/store"
	"github.com/apresai/podcastos/internal/tts"
)

// contentAggregator is the subset of *aggregation.Aggregator that run() calls.
// Tests substitute a fake to drive the orchestrator deterministically without
// reaching any real source connector.
type contentAggregator interface {
	FetchAll(ctx context.Context, sources []model.ContentSource, limitPerSource int) ([]model.RawContentItem, error)
}

// Deps collects the Orchestrator's collaborators. Searcher may be nil (no
// counter-argument search performed). TTSProviders is shared across jobs;
// Embedder and Namer likewise, since they hold no per-job state. Aggregator
// and LLMGenerator default to the real implementations when left zero; tests
// override them to avoid network and LLM access.
type Deps struct {
	Store              *store.Store
	Embedder           cluster.Embedder
	Namer              cluster.Namer
	Searcher           research.NeuralSearcher
	TTSProviders       *tts.ProviderSet
	DefaultTTSProvider string
	WorkDir            string // output root; see paths.go for the on-disk layout
	Logger             *slog.Logger
	MaxConcurrentJobs  int
	Aggregator         contentAggregator
	LLMGenerator       llm.Generator
}

// Orchestrator drives generation jobs. One instance serves every job across
// every profile; each job runs in its own goroutine.
type Orchestrator struct {
	store              *store.Store
	embedder           cluster.Embedder
	namer              cluster.Namer
	searcher           research.NeuralSearcher
	ttsProviders       *tts.ProviderSet
	defaultTTSProvider string
	workDir            string
	log                *slog.Logger
	baseCtx            context.Context
	aggregator         contentAggregator
	llmGenerator       llm.Generator

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	maxJobs int
	running int
}

// New constructs an Orchestrator. baseCtx should be cancelled on SIGTERM so
// in-flight job goroutines can wind down independently of any one HTTP
// request's context.
func New(deps Deps, baseCtx context.Context) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxConcurrentJobs <= 0 {
		deps.MaxConcurrentJobs = 10
	}
	if deps.DefaultTTSProvider == "" {
		deps.DefaultTTSProvider = "gemini"
	}
	if deps.WorkDir != "" {
		if err := ensureWorkDirs(deps.WorkDir); err != nil {
			deps.Logger.Error("ensure work directories", "error", err)
		}
	}
	return &Orchestrator{
		store:              deps.Store,
		embedder:           deps.Embedder,
		namer:              deps.Namer,
		searcher:           deps.Searcher,
		ttsProviders:       deps.TTSProviders,
		defaultTTSProvider: deps.DefaultTTSProvider,
		workDir:            deps.WorkDir,
		log:                deps.Logger,
		baseCtx:            baseCtx,
		aggregator:         deps.Aggregator,
		llmGenerator:       deps.LLMGenerator,
		cancels:            make(map[string]context.CancelFunc),
		maxJobs:            deps.MaxConcurrentJobs,
	}
}

// aggregatorFor returns the injected aggregator, or the real source
// connector set if none was provided.
func (o *Orchestrator) aggregatorFor() contentAggregator {
	if o.aggregator != nil {
		return o.aggregator
	}
	return aggregation.New(o.log)
}

// llmGen returns the injected LLM generator, or builds the real one
// configured by opts if none was provided.
func (o *Orchestrator) llmGen(opts model.JobOptions) (llm.Generator, error) {
	if o.llmGenerator != nil {
		return o.llmGenerator, nil
	}
	return defaultLLMGenerator(opts)
}

// newJobID generates a ULID, grounded on the teacher's NewPodcastID.
func newJobID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return id.String(), nil
}

func applyOptionDefaults(opts *model.JobOptions, profile model.Profile) {
	if opts.TopicCount <= 0 {
		opts.TopicCount = profile.TopicCount
	}
	if opts.DurationMinutes <= 0 {
		opts.DurationMinutes = profile.TargetDurationMin
	}
}

// Start validates the profile exists, creates a pending Job row, and
// enqueues background work. Returns immediately (spec.md §4.7).
func (o *Orchestrator) Start(ctx context.Context, profileID string, opts model.JobOptions) (string, error) {
	profile, err := o.store.GetProfile(ctx, profileID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("start: unknown profile %q", profileID)
	}
	if err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	applyOptionDefaults(&opts, profile)

	id, err := newJobID()
	if err != nil {
		return "", err
	}

	job := model.GenerationJob{
		ID:           id,
		ProfileID:    profileID,
		TargetDate:   time.Now().UTC(),
		Status:       model.JobPending,
		CurrentStage: model.StageInitializing,
		StagesPending: []model.Stage{
			model.StageAggregation, model.StageClustering, model.StageResearch,
			model.StageScripting, model.StageReview, model.StageAudio,
		},
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}

	o.mu.Lock()
	if o.running >= o.maxJobs {
		o.mu.Unlock()
		return "", fmt.Errorf("start: max concurrent jobs reached (%d)", o.maxJobs)
	}
	o.running++
	jobCtx, cancel := context.WithCancel(o.baseCtx)
	o.cancels[id] = cancel
	o.mu.Unlock()

	if err := o.store.CreateJob(ctx, job); err != nil {
		cancel()
		o.releaseSlot(id)
		return "", fmt.Errorf("start: create job: %w", err)
	}

	go o.run(jobCtx, id, profile, opts, model.StageAggregation)
	return id, nil
}

func (o *Orchestrator) releaseSlot(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancels, jobID)
	o.running--
}

// GetStatus is a cheap read of one job's current status snapshot.
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (model.StatusSnapshot, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return model.StatusSnapshot{}, err
	}
	return job.Snapshot(), nil
}

// Cancel marks a job cancelled iff it is in a cancellable state, and flips
// its in-process cancellation signal so the running worker (if any) stops
// at its next stage boundary.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (bool, error) {
	ok, err := o.store.CancelJob(ctx, jobID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	o.mu.Lock()
	if cancel, exists := o.cancels[jobID]; exists {
		cancel()
	}
	o.mu.Unlock()
	return ok, nil
}

// Approve resumes a job that is waiting-for-review. If editedScript is
// non-nil, it replaces the script on disk before resuming. Valid only when
// the job's status is waiting-for-review (spec.md §4.7).
func (o *Orchestrator) Approve(ctx context.Context, jobID string, editedScript *model.PodcastScript) error {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobWaitingForReview {
		return fmt.Errorf("approve: job %s is %s, not waiting-for-review", jobID, job.Status)
	}

	profile, err := o.store.GetProfile(ctx, job.ProfileID)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	episodeID, _ := job.StageDetails.Info["episodeId"].(string)
	if episodeID == "" {
		return fmt.Errorf("approve: job %s has no pending episode id", jobID)
	}
	if editedScript != nil {
		if err := writeScript(o.workDir, episodeID, *editedScript); err != nil {
			return fmt.Errorf("approve: %w", err)
		}
	}

	job.Status = model.JobRunning
	job.StageDetails.Append(model.LogInfo, "approved; resuming at audio stage", time.Now().UTC())
	if err := o.store.UpdateJobProgress(ctx, job); err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	o.mu.Lock()
	if o.running >= o.maxJobs {
		o.mu.Unlock()
		return fmt.Errorf("approve: max concurrent jobs reached (%d)", o.maxJobs)
	}
	o.running++
	jobCtx, cancel := context.WithCancel(o.baseCtx)
	o.cancels[jobID] = cancel
	o.mu.Unlock()

	go o.run(jobCtx, jobID, profile, job.Options, model.StageAudio)
	return nil
}

// ResumeOrphaned implements the restart-recovery policy: jobs left pending
// or running at process startup are either failed with an "interrupted"
// message, or — if isRecoverable — restarted from the beginning
// (spec.md §5). Call once at daemon startup.
func (o *Orchestrator) ResumeOrphaned(ctx context.Context) error {
	jobs, err := o.store.ListOrphanedJobs(ctx)
	if err != nil {
		return fmt.Errorf("resume orphaned: %w", err)
	}
	for _, job := range jobs {
		if !job.Options.IsRecoverable {
			if err := o.store.FailJob(ctx, job.ID, "interrupted by server restart", time.Now().UTC()); err != nil {
				o.log.Error("fail orphaned job", "job_id", job.ID, "error", err)
			}
			continue
		}

		profile, err := o.store.GetProfile(ctx, job.ProfileID)
		if err != nil {
			o.log.Error("resume orphaned job: load profile", "job_id", job.ID, "error", err)
			o.store.FailJob(ctx, job.ID, "interrupted by server restart: profile unavailable", time.Now().UTC())
			continue
		}

		job.Status = model.JobResumed
		job.StageDetails.Append(model.LogWarn, "restarting from the beginning after server restart", time.Now().UTC())
		if err := o.store.UpdateJobProgress(ctx, job); err != nil {
			o.log.Error("mark job resumed", "job_id", job.ID, "error", err)
			continue
		}

		o.mu.Lock()
		if o.running >= o.maxJobs {
			o.mu.Unlock()
			o.store.FailJob(ctx, job.ID, "interrupted by server restart: no capacity to resume", time.Now().UTC())
			continue
		}
		o.running++
		jobCtx, cancel := context.WithCancel(o.baseCtx)
		o.cancels[job.ID] = cancel
		o.mu.Unlock()

		go o.run(jobCtx, job.ID, profile, job.Options, model.StageAggregation)
	}
	return nil
}

// episodeIDFor computes the stable episode id: "{profile-slug}-{YYYYMMDD}".
func episodeIDFor(profile model.Profile, date time.Time) string {
	return fmt.Sprintf("%s-%s", profile.Slug(), date.Format("20060102"))
}

func defaultLLMGenerator(opts model.JobOptions) (llm.Generator, error) {
	return llm.New(llm.Config{Provider: opts.ScriptProvider, Model: opts.ScriptModel})
}

func ensureWorkDirs(workDir string) error {
	for _, sub := range []string{"scripts", "audio", "episodes", "newsletters"} {
		if err := os.MkdirAll(filepath.Join(workDir, sub), 0755); err != nil {
			return fmt.Errorf("ensure work dir %s: %w", sub, err)
		}
	}
	return nil
}
