// Package httpapi exposes the Job Orchestrator and episode store over HTTP
// (spec.md §6): job lifecycle endpoints for the UI and external schedulers,
// plus read-only episode/feed/audio endpoints for podcast clients. Grounded
// on internal/mcpserver/server.go's custom-mux-plus-logging-middleware
// shape, adapted from MCP tool calls to a plain REST surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apresai/podcastos/internal/feed"
	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/store"
)

// Server wires the Orchestrator and Store to net/http handlers.
type Server struct {
	orch         *orchestrator.Orchestrator
	store        *store.Store
	workDir      string
	feedBaseURL  string
	audioBaseURL string
	log          *slog.Logger
}

// Config holds the values New needs beyond its collaborators.
type Config struct {
	WorkDir      string // output root; see orchestrator/paths.go
	FeedBaseURL  string // public base URL this server is reachable at, for feed self-links
	AudioBaseURL string // public base URL enclosure URLs are built against
}

// New constructs a Server. logger defaults to slog.Default() if nil.
func New(orch *orchestrator.Orchestrator, st *store.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orch:         orch,
		store:        st,
		workDir:      cfg.WorkDir,
		feedBaseURL:  cfg.FeedBaseURL,
		audioBaseURL: cfg.AudioBaseURL,
		log:          logger,
	}
}

// Handler builds the routed, logging-wrapped http.Handler (spec.md §6's
// endpoint table). Route patterns use Go 1.22 ServeMux method+wildcard
// syntax, the same style as net/http's standard library routing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs/{jobId}", s.handleGetJob)
	mux.HandleFunc("POST /jobs/{jobId}/cancel", s.handleCancelJob)
	mux.HandleFunc("POST /jobs/{jobId}/approve", s.handleApproveJob)
	mux.HandleFunc("GET /profiles/{id}/episodes", s.handleListEpisodes)
	mux.HandleFunc("GET /episodes/{id}/feed.xml", s.handleFeed)
	mux.HandleFunc("GET /episodes/{id}/audio", s.handleAudio)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(lw, r)
		s.log.Info("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", lw.status, "duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// createJobRequest is the /jobs POST body (spec.md §6).
type createJobRequest struct {
	ProfileID string           `json:"profileId"`
	Options   model.JobOptions `json:"options"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	jobID, err := s.orch.Start(r.Context(), req.ProfileID, req.Options)
	if err != nil {
		s.log.Error("start job", "profile_id", req.ProfileID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	snapshot, err := s.orch.GetStatus(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.log.Error("get job status", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	ok, err := s.orch.Cancel(r.Context(), jobID)
	if err != nil {
		s.log.Error("cancel job", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "job is not in a cancellable state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleApproveJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")

	var editedScript *model.PodcastScript
	if r.ContentLength != 0 {
		var script model.PodcastScript
		if err := json.NewDecoder(r.Body).Decode(&script); err != nil {
			writeError(w, http.StatusBadRequest, "invalid edited script: "+err.Error())
			return
		}
		editedScript = &script
	}

	if err := s.orch.Approve(r.Context(), jobID, editedScript); err != nil {
		s.log.Error("approve job", "job_id", jobID, "error", err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// episodeSummary is the list-shape returned by GET /profiles/{id}/episodes —
// full scripts and segment paths are left out of the listing view.
type episodeSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PublishedAt     time.Time `json:"publishedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
	AudioURL        string    `json:"audioUrl"`
	NewsletterURL   string    `json:"newsletterUrl,omitempty"`
	Topics          []string  `json:"topics"`
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")
	episodes, err := s.store.ListEpisodesByProfile(r.Context(), profileID, 0)
	if err != nil {
		s.log.Error("list episodes", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load episodes")
		return
	}

	out := make([]episodeSummary, len(episodes))
	for i, ep := range episodes {
		out[i] = episodeSummary{
			ID: ep.ID, Title: ep.Title, Description: ep.Description,
			PublishedAt: ep.PublishedAt, DurationSeconds: ep.DurationSeconds,
			AudioURL: ep.AudioURL, NewsletterURL: ep.NewsletterURL, Topics: ep.Topics,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleFeed serves the profile-wide RSS feed at an episode-scoped path:
// episodeId encodes its owning profile as "{profile-slug}-{YYYYMMDD}", so
// the feed for an episode's show is every episode published by that
// episode's profile.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	ep, err := s.store.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "episode not found")
		return
	}
	if err != nil {
		s.log.Error("get episode for feed", "episode_id", episodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load episode")
		return
	}
	profile, err := s.store.GetProfile(r.Context(), ep.ProfileID)
	if err != nil {
		s.log.Error("get profile for feed", "profile_id", ep.ProfileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	episodes, err := s.store.ListEpisodesByProfile(r.Context(), profile.ID, 0)
	if err != nil {
		s.log.Error("list episodes for feed", "profile_id", profile.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load episodes")
		return
	}

	feedURL := fmt.Sprintf("%s/episodes/%s/feed.xml", s.feedBaseURL, episodeID)
	ch := feed.ChannelFromProfile(profile, feedURL, s.audioBaseURL)
	xml, err := feed.Render(ch, episodes)
	if err != nil {
		s.log.Error("render feed", "profile_id", profile.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render feed")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(xml)
}

// handleAudio serves the stitched episode audio referenced by
// Episode.AudioURL, a filesystem path relative to the configured output
// root (spec.md §6's on-disk layout).
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	ep, err := s.store.GetEpisode(r.Context(), episodeID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "episode not found")
		return
	}
	if err != nil {
		s.log.Error("get episode for audio", "episode_id", episodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load episode")
		return
	}
	if ep.AudioURL == "" {
		writeError(w, http.StatusNotFound, "episode has no rendered audio")
		return
	}

	path := ep.AudioURL
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.workDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "audio file unavailable")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
