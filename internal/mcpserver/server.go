package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port         int
	S3Bucket     string // optional; empty disables episode-artifact uploads
	CDNBaseURL   string
	AWSRegion    string
	SecretPrefix string // e.g. "/podcastos/mcp/"
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	return Config{
		Port:         8000,
		S3Bucket:     envOr("S3_BUCKET", ""),
		CDNBaseURL:   envOr("CDN_BASE_URL", "https://podcasts.apresai.dev"),
		AWSRegion:    envOr("AWS_REGION", "us-east-1"),
		SecretPrefix: envOr("SECRET_PREFIX", "/podcastos/mcp/"),
	}
}

// Server is the MCP server exposing the Job Orchestrator's lifecycle
// operations as tools, grounded on the teacher's single-tool MCP server
// generalized to the named-stage job machine (spec.md §4.7).
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	storage  *Storage
	log      *slog.Logger
}

// New creates and configures the MCP server. Secrets load asynchronously
// so the HTTP listener can come up immediately; see loadSecrets.
func New(ctx context.Context, cfg Config, orch *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) (*Server, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	if cfg.SecretPrefix != "" {
		go func() {
			if err := loadSecrets(ctx, awsCfg, cfg.SecretPrefix, logger); err != nil {
				logger.Warn("failed to load secrets from Secrets Manager, falling back to env vars", "error", err)
			}
		}()
	}

	var storage *Storage
	if cfg.S3Bucket != "" {
		storage = NewStorage(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.CDNBaseURL)
	} else {
		storage = NewStorage(nil, "", "")
	}

	handlers := NewHandlers(orch, st, logger)

	mcpServer := server.NewMCPServer("podcastos", "1.0.0", server.WithToolCapabilities(true))
	tools := ToolDefs()
	mcpServer.AddTool(tools[0], handlers.HandleStartEpisodeJob)
	mcpServer.AddTool(tools[1], handlers.HandleGetJobStatus)
	mcpServer.AddTool(tools[2], handlers.HandleCancelJob)
	mcpServer.AddTool(tools[3], handlers.HandleApproveJob)
	mcpServer.AddTool(tools[4], handlers.HandleListProfileEpisodes)

	return &Server{cfg: cfg, mcp: mcpServer, handlers: handlers, storage: storage, log: logger}, nil
}

// Storage returns the S3 upload handler, for callers (e.g. the persisting
// stage) that want to publish finished artifacts once a job completes.
func (s *Server) Storage() *Storage {
	return s.storage
}

// Start runs the HTTP MCP server, mounted at /mcp (stateless — no per-session
// auth context; this surface has no bearer-token layer, matching the plain
// HTTP API's lack of one).
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("starting MCP server", "addr", addr)

	mcpHandler := server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/mcp/", mcpHandler)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("http request", "method", r.Method, "path", r.URL.Path)
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		mux.ServeHTTP(w, r)
	})

	httpSrv := &http.Server{Addr: addr, Handler: handler}
	return httpSrv.ListenAndServe()
}

// loadSecrets fetches API keys from Secrets Manager and sets them as env
// vars, skipping any already set. Grounded on the teacher's loadSecrets.
func loadSecrets(ctx context.Context, cfg aws.Config, prefix string, logger *slog.Logger) error {
	client := secretsmanager.NewFromConfig(cfg)

	secrets := map[string]string{
		"ANTHROPIC_API_KEY":  prefix + "ANTHROPIC_API_KEY",
		"GEMINI_API_KEY":     prefix + "GEMINI_API_KEY",
		"ELEVENLABS_API_KEY": prefix + "ELEVENLABS_API_KEY",
		"VERTEX_AI_API_KEY":  prefix + "VERTEX_AI_API_KEY",
	}

	for envVar, secretID := range secrets {
		if os.Getenv(envVar) != "" {
			continue
		}
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
		if err != nil {
			logger.Info("secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			os.Setenv(envVar, *result.SecretString)
			logger.Info("loaded secret", "secret_id", secretID)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
