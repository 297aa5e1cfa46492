package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/apresai/podcastos/internal/model"
)

func TestCreateJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := New(db)

	job := model.GenerationJob{
		ID:              "job-1",
		ProfileID:       "profile-1",
		TargetDate:      time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
		Status:          model.JobPending,
		CurrentStage:    model.StageInitializing,
		ProgressPercent: 0,
		StagesPending:   []model.Stage{model.StageAggregation, model.StageClustering},
		CreatedAt:       time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO generation_jobs").
		WithArgs(job.ID, job.ProfileID, job.TargetDate, job.Status, job.CurrentStage, job.ProgressPercent,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), job.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelJobAlreadyTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := New(db)

	mock.ExpectExec("UPDATE generation_jobs SET status").
		WithArgs("job-1", model.JobCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.CancelJob(context.Background(), "job-1", time.Now())
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if ok {
		t.Fatalf("expected cancel to report false for an already-terminal job")
	}
}

func TestGetJobNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := New(db)

	mock.ExpectQuery("SELECT (.+) FROM generation_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err = s.GetJob(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("GetJob error = %v, want ErrNotFound", err)
	}
}
