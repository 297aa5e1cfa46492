package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/apresai/podcastos/internal/audio"
	"github.com/apresai/podcastos/internal/cluster"
	"github.com/apresai/podcastos/internal/metrics"
	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/newsletter"
	"github.com/apresai/podcastos/internal/research"
	"github.com/apresai/podcastos/internal/synth"
)

// run drives one job goroutine from startStage through completion, failure,
// cancellation, or a pause for review. It is the only place a job's stages
// advance once the job has been created; Cancel, Approve, and
// ResumeOrphaned change only its status (spec.md §4.7).
func (o *Orchestrator) run(ctx context.Context, jobID string, profile model.Profile, opts model.JobOptions, startStage model.Stage) {
	defer o.releaseSlot(jobID)

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		o.log.Error("run: load job", "job_id", jobID, "error", err)
		return
	}
	if job.StartedAt == nil {
		started := time.Now().UTC()
		job.StartedAt = &started
	}
	job.Status = model.JobRunning
	if job.StageDetails.Info == nil {
		job.StageDetails.Info = map[string]any{}
	}

	episodeID := episodeIDFor(profile, job.TargetDate)
	job.StageDetails.Info["episodeId"] = episodeID

	fail := func(stage model.Stage, cause error) {
		o.log.Error("stage failed", "job_id", jobID, "stage", stage, "error", cause)
		job.StageDetails.Append(model.LogError, fmt.Sprintf("%s failed: %v", stage, cause), time.Now().UTC())
		if err := o.store.UpdateJobProgress(ctx, job); err != nil {
			o.log.Error("flush failing job's activity log", "job_id", jobID, "error", err)
		}
		if err := o.store.FailJob(ctx, jobID, cause.Error(), time.Now().UTC()); err != nil {
			o.log.Error("mark job failed", "job_id", jobID, "error", err)
		}
		metrics.JobsTotal.WithLabelValues(string(model.JobFailed)).Inc()
	}

	// cancelled checks for cooperative cancellation at a stage boundary and,
	// if set, records it and returns true so the caller can stop (spec.md §5:
	// cancellation takes effect at the next stage boundary, not mid-stage).
	cancelled := func() bool {
		if ctx.Err() == nil {
			return false
		}
		job.StageDetails.Append(model.LogInfo, "cancelled at stage boundary", time.Now().UTC())
		if err := o.store.UpdateJobProgress(ctx, job); err != nil {
			o.log.Error("flush cancelled job's activity log", "job_id", jobID, "error", err)
		}
		metrics.JobsTotal.WithLabelValues(string(model.JobCancelled)).Inc()
		return true
	}

	stageStart := time.Now()
	advance := func(stage model.Stage, activity string) {
		if job.CurrentStage != "" && job.CurrentStage != stage {
			job.StagesCompleted = append(job.StagesCompleted, job.CurrentStage)
			metrics.StageDurationSeconds.WithLabelValues(string(job.CurrentStage)).Observe(time.Since(stageStart).Seconds())
			stageStart = time.Now()
		}
		job.StagesPending = removeStage(job.StagesPending, stage)
		job.CurrentStage = stage
		job.ProgressPercent = model.StageEntryPercent[stage]
		job.StageDetails.Append(model.LogInfo, activity, time.Now().UTC())
		if err := o.store.UpdateJobProgress(ctx, job); err != nil {
			o.log.Error("update job progress", "job_id", jobID, "stage", stage, "error", err)
		}
	}

	var (
		script   model.PodcastScript
		verified []model.VerifiedTopic
	)

	if startStage == model.StageAudio {
		s, err := readScript(o.workDir, episodeID)
		if err != nil {
			fail(model.StageAudio, fmt.Errorf("reload script after review: %w", err))
			return
		}
		script = s
		if err := decodeInfo(job.StageDetails.Info, "verifiedTopics", &verified); err != nil {
			fail(model.StageAudio, fmt.Errorf("reload verified topics after review: %w", err))
			return
		}
	} else {
		advance(model.StageAggregation, "fetching content from configured sources")
		if cancelled() {
			return
		}
		agg := o.aggregatorFor()
		items, err := agg.FetchAll(ctx, profile.Sources, 0)
		if err != nil {
			fail(model.StageAggregation, err)
			return
		}
		if len(items) == 0 {
			fail(model.StageAggregation, fmt.Errorf("no content fetched from %d configured sources", len(profile.Sources)))
			return
		}
		job.StageDetails.Append(model.LogInfo, fmt.Sprintf("fetched %d content items", len(items)), time.Now().UTC())

		advance(model.StageClustering, "clustering content into topics")
		if cancelled() {
			return
		}
		clusterer := cluster.New(o.embedder, o.namer)
		clusters, err := clusterer.ClusterContents(ctx, items)
		if err != nil {
			fail(model.StageClustering, err)
			return
		}
		history, err := o.store.RecentTopicHistory(ctx, profile.ID, 0)
		if err != nil {
			fail(model.StageClustering, fmt.Errorf("load topic history: %w", err))
			return
		}
		clusters = applyAvoidance(profile, clusters, history, time.Now().UTC())
		if opts.TopicCount > 0 && len(clusters) > opts.TopicCount {
			clusters = clusters[:opts.TopicCount]
		}
		job.StageDetails.Append(model.LogInfo, fmt.Sprintf("selected %d clusters after avoidance rules", len(clusters)), time.Now().UTC())

		advance(model.StageResearch, "researching selected topics")
		if cancelled() {
			return
		}
		gen, err := o.llmGen(opts)
		if err != nil {
			fail(model.StageResearch, err)
			return
		}
		researcher := research.New(gen, o.searcher)
		researched := researcher.ResearchClusters(ctx, clusters, opts.DeepResearch)
		verified = verifyTopics(researched, opts)
		job.StageDetails.Append(model.LogInfo, fmt.Sprintf("researched %d topics", len(verified)), time.Now().UTC())

		advance(model.StageScripting, "synthesizing script")
		if cancelled() {
			return
		}
		synthesizer := synth.New(gen)
		script, err = synthesizer.Synthesize(ctx, profile, verified)
		if err != nil {
			fail(model.StageScripting, err)
			return
		}
		if opts.EditorialReview {
			reviewer := synth.NewReviewer(gen)
			result, rerr := reviewer.Review(ctx, script, profile)
			if rerr != nil {
				job.StageDetails.Append(model.LogWarn, fmt.Sprintf("editorial review failed, keeping draft: %v", rerr), time.Now().UTC())
			} else {
				if result.Revised != nil {
					script = *result.Revised
				}
				script.EditorialNotes = issueMessages(result.Issues)
			}
		}

		if err := writeScript(o.workDir, episodeID, script); err != nil {
			fail(model.StageScripting, err)
			return
		}
		if err := encodeInfo(job.StageDetails.Info, "verifiedTopics", verified); err != nil {
			fail(model.StageScripting, err)
			return
		}

		// Pause-for-review boundary: only when the job opted in does it stop
		// here for a human (or an automated approve() call) to decide whether
		// audio rendering proceeds against this script (spec.md §4.7). A job
		// with editorialReview disabled falls through to the audio stage
		// below in this same run.
		if opts.EditorialReview {
			advance(model.StageReview, "script ready; waiting for review")
			job.Status = model.JobWaitingForReview
			if err := o.store.UpdateJobProgress(ctx, job); err != nil {
				o.log.Error("update job progress", "job_id", jobID, "error", err)
			}
			return
		}
	}

	advance(model.StageAudio, "rendering audio")
	if cancelled() {
		return
	}

	var audioEpisode model.AudioEpisode
	if opts.GenerateAudio {
		providerName := opts.TTSModel
		if providerName == "" {
			providerName = o.defaultTTSProvider
		}
		provider, err := o.ttsProviders.Get(providerName)
		if err != nil {
			fail(model.StageAudio, err)
			return
		}
		renderer := audio.New(o.ttsProviders, filepath.Join(o.workDir, "audio"))
		voiceOf := audio.VoiceResolver(profile, provider)
		audioEpisode, err = renderer.Render(ctx, script, providerName, voiceOf)
		if err != nil {
			fail(model.StageAudio, err)
			return
		}
		if audioEpisode.SkippedLines > 0 {
			job.StageDetails.Append(model.LogWarn, fmt.Sprintf("%d dialogue lines failed synthesis and were skipped", audioEpisode.SkippedLines), time.Now().UTC())
		}
	} else {
		job.StageDetails.Append(model.LogInfo, "audio generation disabled for this job", time.Now().UTC())
	}

	advance(model.StagePersisting, "persisting episode")
	if cancelled() {
		return
	}

	var newsletterURL string
	if opts.GenerateNewsletter {
		gen, err := o.llmGen(opts)
		if err != nil {
			job.StageDetails.Append(model.LogWarn, fmt.Sprintf("newsletter generation skipped: %v", err), time.Now().UTC())
		} else {
			issue := newsletter.New(gen).Generate(ctx, profile, verified)
			if err := writeNewsletter(o.workDir, episodeID, issue.ToMarkdown()); err != nil {
				job.StageDetails.Append(model.LogWarn, fmt.Sprintf("newsletter write failed: %v", err), time.Now().UTC())
			} else {
				newsletterURL = newsletterPath(o.workDir, episodeID)
			}
		}
	}

	if err := persistEpisode(ctx, o.store, profile, episodeID, script, audioEpisode, verified, job.TargetDate, newsletterURL); err != nil {
		fail(model.StagePersisting, err)
		return
	}

	metrics.StageDurationSeconds.WithLabelValues(string(model.StagePersisting)).Observe(time.Since(stageStart).Seconds())
	metrics.JobsTotal.WithLabelValues(string(model.JobCompleted)).Inc()

	completedAt := time.Now().UTC()
	job.StagesCompleted = append(job.StagesCompleted, model.StagePersisting)
	job.StagesPending = nil
	job.Status = model.JobCompleted
	job.CurrentStage = model.StageDone
	job.ProgressPercent = 100
	job.EpisodeID = episodeID
	job.CompletedAt = &completedAt
	job.StageDetails.Append(model.LogSuccess, "episode generation complete", completedAt)
	if err := o.store.UpdateJobProgress(ctx, job); err != nil {
		o.log.Error("flush final job state", "job_id", jobID, "error", err)
	}
	if err := o.store.CompleteJob(ctx, jobID, episodeID, completedAt); err != nil {
		o.log.Error("complete job", "job_id", jobID, "error", err)
	}
}

// removeStage returns pending with stage removed, preserving order.
func removeStage(pending []model.Stage, stage model.Stage) []model.Stage {
	out := pending[:0]
	for _, s := range pending {
		if s != stage {
			out = append(out, s)
		}
	}
	return out
}
