package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/podcastos/internal/cluster"
	"github.com/apresai/podcastos/internal/llm"
	"github.com/apresai/podcastos/internal/mcpserver"
	"github.com/apresai/podcastos/internal/observability"
	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/research"
	"github.com/apresai/podcastos/internal/store"
	"github.com/apresai/podcastos/internal/tts"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("podcastos MCP server starting...")

	logger := observability.InitLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(envOr("DATABASE_URL", "postgres://localhost:5432/podcastos?sslmode=disable"))
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.ApplySchema(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	namerGen, err := llm.New(llm.Config{Provider: envOr("CLUSTER_NAMER_PROVIDER", "claude")})
	if err != nil {
		log.Fatalf("failed to construct cluster namer generator: %v", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:              st,
		Embedder:           cluster.NewGeminiEmbedder(""),
		Namer:              cluster.NewLLMNamer(namerGen),
		Searcher:           research.NewExaSearcher(""),
		TTSProviders:       tts.NewProviderSet(),
		DefaultTTSProvider: envOr("DEFAULT_TTS_PROVIDER", "gemini"),
		WorkDir:            envOr("PODCASTOS_WORK_DIR", "./data"),
		Logger:             logger,
	}, ctx)

	if err := orch.ResumeOrphaned(ctx); err != nil {
		logger.Error("failed to resume orphaned jobs", "error", err)
	}

	cfg := mcpserver.DefaultConfig()

	srv, err := mcpserver.New(ctx, cfg, orch, st, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received")
		os.Exit(0)
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
