package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/store"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	st := store.New(db)
	orch := orchestrator.New(orchestrator.Deps{Store: st}, context.Background())
	srv := New(orch, st, Config{WorkDir: t.TempDir(), FeedBaseURL: "https://pod.example.com", AudioBaseURL: "https://pod.example.com/audio"}, nil)
	return srv, mock, func() { db.Close() }
}

func TestHandleHealthz(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleCreateJobMissingProfileID(t *testing.T) {
	srv, _, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"options":{}}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetJobNotFound(t *testing.T) {
	srv, mock, cleanup := newTestServer(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, profile_id").WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/jobs/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListEpisodes(t *testing.T) {
	srv, mock, cleanup := newTestServer(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"id", "profile_id", "title", "description", "published_at", "duration_seconds",
		"audio_url", "script", "topics", "newsletter_url",
	}).AddRow(
		"ep-1", "profile-1", "Today's Brief", "desc",
		time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC), 600.0,
		"/audio/ep-1.mp3", []byte(`{}`), []byte(`["AI news"]`), "",
	)
	mock.ExpectQuery("SELECT id, profile_id, title, description, published_at, duration_seconds, audio_url, script, topics, newsletter_url\\s+FROM episodes WHERE profile_id").
		WithArgs("profile-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/profiles/profile-1/episodes", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHandleCancelJobConflict(t *testing.T) {
	srv, mock, cleanup := newTestServer(t)
	defer cleanup()

	mock.ExpectExec("UPDATE generation_jobs SET status").
		WithArgs("job-1", model.JobCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodPost, "/jobs/job-1/cancel", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
