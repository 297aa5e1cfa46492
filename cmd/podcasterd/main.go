// Command podcasterd is the long-running production daemon: it drives the
// Job Orchestrator, the profile Scheduler, and the external HTTP API in one
// process, backed by a single Postgres connection pool.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/apresai/podcastos/internal/cluster"
	"github.com/apresai/podcastos/internal/httpapi"
	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/observability"
	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/research"
	"github.com/apresai/podcastos/internal/scheduler"
	"github.com/apresai/podcastos/internal/store"
	"github.com/apresai/podcastos/internal/tts"
)

func main() {
	logger := observability.InitLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		tp, err := observability.InitTracer(ctx, "podcastos", "1.0.0")
		if err != nil {
			logger.Warn("tracing disabled: failed to init tracer provider", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	st, err := store.Open(envOr("DATABASE_URL", "postgres://localhost:5432/podcastos?sslmode=disable"))
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.ApplySchema(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	ttsProviders := tts.NewProviderSet()
	for _, name := range []string{"gemini", "elevenlabs", "google", "gemini-vertex", "gemini-vertex-express", "polly"} {
		ttsProviders.SetConfig(name, tts.ProviderConfig{})
	}

	namerGen, err := llm.New(llm.Config{Provider: envOr("CLUSTER_NAMER_PROVIDER", "claude")})
	if err != nil {
		logger.Error("failed to construct cluster namer generator", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:              st,
		Embedder:           cluster.NewGeminiEmbedder(""),
		Namer:              cluster.NewLLMNamer(namerGen),
		Searcher:           research.NewExaSearcher(""),
		TTSProviders:       ttsProviders,
		DefaultTTSProvider: envOr("DEFAULT_TTS_PROVIDER", "gemini"),
		WorkDir:            envOr("PODCASTOS_WORK_DIR", "./data"),
		Logger:             logger,
		MaxConcurrentJobs:  envOrInt("MAX_CONCURRENT_JOBS", 4),
	}, ctx)

	if err := orch.ResumeOrphaned(ctx); err != nil {
		logger.Error("failed to resume orphaned jobs", "error", err)
	}

	sched := scheduler.New(orch, st, scheduler.Config{
		PollInterval: envOrDuration("SCHEDULER_POLL_INTERVAL", time.Minute),
		MisfireGrace: envOrDuration("SCHEDULER_MISFIRE_GRACE", time.Hour),
	}, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	api := httpapi.New(orch, st, httpapi.Config{
		WorkDir:      envOr("PODCASTOS_WORK_DIR", "./data"),
		FeedBaseURL:  envOr("FEED_BASE_URL", "http://localhost:8080"),
		AudioBaseURL: envOr("AUDIO_BASE_URL", "http://localhost:8080"),
	}, logger)

	addr := ":" + envOr("PORT", "8080")
	httpSrv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	logger.Info("podcasterd starting", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
