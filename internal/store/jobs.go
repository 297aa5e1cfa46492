package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apresai/podcastos/internal/model"
)

// CreateJob inserts a new Generation Job row with status=pending.
// Grounded on the teacher's Store.CreateJob.
func (s *Store) CreateJob(ctx context.Context, j model.GenerationJob) error {
	stagesCompleted, err := marshalJSON(j.StagesCompleted)
	if err != nil {
		return err
	}
	stagesPending, err := marshalJSON(j.StagesPending)
	if err != nil {
		return err
	}
	stageDetails, err := marshalJSON(j.StageDetails)
	if err != nil {
		return err
	}
	options, err := marshalJSON(j.Options)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_jobs (id, profile_id, target_date, status, current_stage, progress_percent,
			stages_completed, stages_pending, stage_details, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, j.ProfileID, j.TargetDate, j.Status, j.CurrentStage, j.ProgressPercent,
		stagesCompleted, stagesPending, stageDetails, options, j.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// UpdateJobProgress persists the stage/progress/activity-log fields updated
// at every stage boundary. Grounded on the teacher's Store.UpdateProgress.
func (s *Store) UpdateJobProgress(ctx context.Context, j model.GenerationJob) error {
	stagesCompleted, err := marshalJSON(j.StagesCompleted)
	if err != nil {
		return err
	}
	stagesPending, err := marshalJSON(j.StagesPending)
	if err != nil {
		return err
	}
	stageDetails, err := marshalJSON(j.StageDetails)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status=$2, current_stage=$3, progress_percent=$4,
			stages_completed=$5, stages_pending=$6, stage_details=$7, started_at=$8
		WHERE id=$1`,
		j.ID, j.Status, j.CurrentStage, j.ProgressPercent,
		stagesCompleted, stagesPending, stageDetails, j.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// CompleteJob marks the job completed with its resulting episode id.
// Grounded on the teacher's Store.CompleteJob.
func (s *Store) CompleteJob(ctx context.Context, id, episodeID string, completedAt any) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status=$2, progress_percent=100, current_stage=$3, episode_id=$4, completed_at=$5
		WHERE id=$1`,
		id, model.JobCompleted, model.StageDone, episodeID, completedAt,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob marks the job failed with an error message.
// Grounded on the teacher's Store.FailJob.
func (s *Store) FailJob(ctx context.Context, id, errMsg string, completedAt any) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status=$2, error_message=$3, completed_at=$4 WHERE id=$1`,
		id, model.JobFailed, errMsg, completedAt,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// CancelJob marks the job cancelled iff its current status allows it,
// returning false if the job was already terminal.
func (s *Store) CancelJob(ctx context.Context, id string, completedAt any) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE generation_jobs SET status=$2, error_message='Cancelled by user', completed_at=$3
		WHERE id=$1 AND status IN ('pending', 'running', 'waiting-for-review')`,
		id, model.JobCancelled, completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	return n > 0, nil
}

// GetJob retrieves a single job by id.
func (s *Store) GetJob(ctx context.Context, id string) (model.GenerationJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, target_date, status, current_stage, progress_percent,
			stages_completed, stages_pending, stage_details, options, episode_id, error_message,
			created_at, started_at, completed_at
		FROM generation_jobs WHERE id=$1`, id)

	var j model.GenerationJob
	var stagesCompleted, stagesPending, stageDetails, options []byte
	var episodeID, errMsg sql.NullString
	err := row.Scan(&j.ID, &j.ProfileID, &j.TargetDate, &j.Status, &j.CurrentStage, &j.ProgressPercent,
		&stagesCompleted, &stagesPending, &stageDetails, &options, &episodeID, &errMsg,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GenerationJob{}, ErrNotFound
	}
	if err != nil {
		return model.GenerationJob{}, fmt.Errorf("get job: %w", err)
	}
	j.EpisodeID = episodeID.String
	j.ErrorMessage = errMsg.String
	if err := unmarshalJSON(stagesCompleted, &j.StagesCompleted); err != nil {
		return model.GenerationJob{}, err
	}
	if err := unmarshalJSON(stagesPending, &j.StagesPending); err != nil {
		return model.GenerationJob{}, err
	}
	if err := unmarshalJSON(stageDetails, &j.StageDetails); err != nil {
		return model.GenerationJob{}, err
	}
	if err := unmarshalJSON(options, &j.Options); err != nil {
		return model.GenerationJob{}, err
	}
	return j, nil
}

// IsProfileJobActive reports whether a profile already has a non-terminal
// job in flight, used by the scheduler to enforce one instance per profile
// at a time.
func (s *Store) IsProfileJobActive(ctx context.Context, profileID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM generation_jobs
			WHERE profile_id=$1 AND status IN ('pending', 'running', 'waiting-for-review'))`,
		profileID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active job: %w", err)
	}
	return exists, nil
}

// ListOrphanedJobs returns jobs left in pending/running at process startup,
// candidates for the restart-recovery policy.
func (s *Store) ListOrphanedJobs(ctx context.Context) ([]model.GenerationJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM generation_jobs WHERE status IN ('pending', 'running')`)
	if err != nil {
		return nil, fmt.Errorf("list orphaned jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list orphaned jobs: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.GenerationJob, 0, len(ids))
	for _, id := range ids {
		j, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}
