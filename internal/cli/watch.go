package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/progress"
)

// pollInterval is how often watchJob re-fetches a job's status snapshot.
const pollInterval = 2 * time.Second

// watchJob polls a job until it reaches a terminal status or pauses for
// editorial review. On an interactive terminal it drives a Bubble Tea
// program; otherwise it falls back to the teacher's line-oriented bar
// renderer, since a full-screen TUI is meaningless on piped output.
func watchJob(client *apiClient, jobID string) error {
	if stdoutIsTTY() {
		p := tea.NewProgram(newWatchModel(client, jobID))
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("watch job: %w", err)
		}
		if m, ok := final.(watchModel); ok && m.err != nil {
			return fmt.Errorf("watch job: %w", m.err)
		}
		return nil
	}
	return watchJobPlain(client, jobID)
}

func watchJobPlain(client *apiClient, jobID string) error {
	renderer := progress.NewBarRenderer(os.Stdout)

	for {
		snapshot, err := client.getStatus(jobID)
		if err != nil {
			renderer.Handle(progress.Event{Error: err})
			renderer.Finish()
			return fmt.Errorf("watch job: %w", err)
		}

		stage := progress.Stage(snapshot.CurrentStage)
		if terminalOrPaused(snapshot.Status) {
			stage = progress.StageComplete
		}

		renderer.Handle(progress.Event{
			Stage:   stage,
			Message: fmt.Sprintf("[%s] %s", snapshot.CurrentStage, snapshot.CurrentActivity),
			Percent: float64(snapshot.ProgressPercent) / 100,
		})

		if terminalOrPaused(snapshot.Status) {
			renderer.Finish()
			return summarize(snapshot)
		}

		time.Sleep(pollInterval)
	}
}

func terminalOrPaused(status model.JobStatus) bool {
	switch status {
	case model.JobCompleted, model.JobFailed, model.JobCancelled, model.JobWaitingForReview:
		return true
	default:
		return false
	}
}

func summarize(snapshot model.StatusSnapshot) error {
	switch snapshot.Status {
	case model.JobCompleted:
		fmt.Printf("job %s completed: episode %s\n", snapshot.JobID, snapshot.EpisodeID)
	case model.JobWaitingForReview:
		fmt.Printf("job %s is waiting for editorial review: podcasterctl approve %s\n", snapshot.JobID, snapshot.JobID)
	case model.JobFailed:
		return fmt.Errorf("job %s failed: %s", snapshot.JobID, snapshot.ErrorMessage)
	case model.JobCancelled:
		fmt.Printf("job %s was cancelled\n", snapshot.JobID)
	}
	return nil
}
