package model

import "time"

// JobStatus enumerates a Generation Job's lifecycle states (spec.md §3, §4.7).
type JobStatus string

const (
	JobPending          JobStatus = "pending"
	JobRunning          JobStatus = "running"
	JobWaitingForReview JobStatus = "waiting-for-review"
	JobResumed          JobStatus = "resumed"
	JobCompleted        JobStatus = "completed"
	JobFailed           JobStatus = "failed"
	JobCancelled        JobStatus = "cancelled"
)

// Stage is a named phase of the job state machine. The set and order are
// fixed: Stages lists every valid name in execution order.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageAggregation  Stage = "aggregation"
	StageClustering   Stage = "clustering"
	StageResearch     Stage = "research"
	StageScripting    Stage = "scripting"
	StageReview       Stage = "review"
	StageAudio        Stage = "audio"
	StagePersisting   Stage = "persisting"
	StageDone         Stage = "done"
)

// Stages is the fixed, totally ordered set of stage names.
var Stages = []Stage{
	StageInitializing, StageAggregation, StageClustering, StageResearch,
	StageScripting, StageReview, StageAudio, StagePersisting, StageDone,
}

// StageEntryPercent is the progressPercent assigned when a stage begins.
var StageEntryPercent = map[Stage]int{
	StageInitializing: 5,
	StageAggregation:  20,
	StageClustering:   35,
	StageResearch:     50,
	StageScripting:    60,
	StageReview:       60,
	StageAudio:        75,
	StagePersisting:   95,
	StageDone:         100,
}

// LogLevel classifies one activity log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
)

// ActivityLogEntry is one timestamped event in a job's stage details.
type ActivityLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     LogLevel  `json:"level"`
}

// MaxActivityLogEntries bounds stageDetails.activityLog; the oldest entries
// are truncated once this is exceeded (spec.md §4.7).
const MaxActivityLogEntries = 200

// StageDetails is the job's free-form progress state: an activity log and a
// single continuously-updated human-readable line.
type StageDetails struct {
	ActivityLog     []ActivityLogEntry `json:"activityLog"`
	CurrentActivity string             `json:"currentActivity"`
	Info            map[string]any     `json:"info,omitempty"`
}

// Append adds an entry to the log, truncating the oldest once the bound is
// exceeded, and updates CurrentActivity.
func (d *StageDetails) Append(level LogLevel, message string, now time.Time) {
	d.ActivityLog = append(d.ActivityLog, ActivityLogEntry{Timestamp: now, Message: message, Level: level})
	if len(d.ActivityLog) > MaxActivityLogEntries {
		d.ActivityLog = d.ActivityLog[len(d.ActivityLog)-MaxActivityLogEntries:]
	}
	d.CurrentActivity = message
}

// JobOptions are the generation parameters frozen on the job row at
// creation time, so a restarted or resumed job can re-instantiate every
// collaborator identically (spec.md §4.7).
type JobOptions struct {
	TopicCount         int    `json:"topicCount"`
	DurationMinutes    int    `json:"durationMinutes"`
	DeepResearch       bool   `json:"deepResearch"`
	EditorialReview    bool   `json:"editorialReview"`
	UseContinuity      bool   `json:"useContinuity"`
	TTSModel           string `json:"ttsModel,omitempty"`
	GenerateAudio      bool   `json:"generateAudio"`
	GenerateNewsletter bool   `json:"generateNewsletter"`
	ScriptProvider     string `json:"scriptProvider,omitempty"`
	ScriptModel        string `json:"scriptModel,omitempty"`
	IsRecoverable      bool   `json:"isRecoverable"`
}

// GenerationJob is the durable state of one production run (spec.md §3).
type GenerationJob struct {
	ID              string       `json:"id"`
	ProfileID       string       `json:"profileId"`
	TargetDate      time.Time    `json:"targetDate"`
	Status          JobStatus    `json:"status"`
	CurrentStage    Stage        `json:"currentStage"`
	ProgressPercent int          `json:"progressPercent"`
	StagesCompleted []Stage      `json:"stagesCompleted"`
	StagesPending   []Stage      `json:"stagesPending"`
	StageDetails    StageDetails `json:"stageDetails"`
	Options         JobOptions   `json:"options"`
	EpisodeID       string       `json:"episodeId,omitempty"`
	ErrorMessage    string       `json:"errorMessage,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	StartedAt       *time.Time   `json:"startedAt,omitempty"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty"`
}

// StatusSnapshot is the wire-shape returned by getStatus (spec.md §4.7).
type StatusSnapshot struct {
	JobID           string    `json:"jobId"`
	Status          JobStatus `json:"status"`
	CurrentStage    Stage     `json:"currentStage"`
	ProgressPercent int       `json:"progressPercent"`
	StagesCompleted []Stage   `json:"stagesCompleted"`
	StagesPending   []Stage   `json:"stagesPending"`
	ActivityLog     []ActivityLogEntry `json:"activityLog"`
	CurrentActivity string    `json:"currentActivity"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	EpisodeID       string    `json:"episodeId,omitempty"`
}

// Snapshot builds the status wire-shape from the job's current state.
func (j GenerationJob) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		JobID:           j.ID,
		Status:          j.Status,
		CurrentStage:    j.CurrentStage,
		ProgressPercent: j.ProgressPercent,
		StagesCompleted: j.StagesCompleted,
		StagesPending:   j.StagesPending,
		ActivityLog:     j.StageDetails.ActivityLog,
		CurrentActivity: j.StageDetails.CurrentActivity,
		ErrorMessage:    j.ErrorMessage,
		EpisodeID:       j.EpisodeID,
	}
}

// IsTerminal reports whether the job has reached a status it never leaves.
func (j GenerationJob) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// CancellableStatuses are the statuses from which cancel(jobId) is valid.
var CancellableStatuses = map[JobStatus]bool{
	JobPending:          true,
	JobRunning:          true,
	JobWaitingForReview: true,
}
