package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/store"
)

var tracer = otel.Tracer("podcastos-mcp")

// ToolDefs returns the MCP tool definitions exposing the Job Orchestrator's
// start/getStatus/cancel/approve operations (spec.md §4.7), generalized
// from the teacher's single generate_podcast tool into the named-stage
// job lifecycle this pipeline drives.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "start_episode_job",
			Description: "Start generating a new podcast episode for a profile. Runs asynchronously through aggregation, clustering, research, scripting, an optional human review pause, audio rendering, and persistence. Returns a job_id immediately; poll get_job_status until status is 'completed' or 'waiting-for-review'.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"profile_id": map[string]any{
						"type":        "string",
						"description": "The profile to generate an episode for",
					},
					"topic_count": map[string]any{
						"type":        "integer",
						"description": "Max topics to research (default: profile's configured count)",
					},
					"duration_minutes": map[string]any{
						"type":        "integer",
						"description": "Target episode length in minutes (default: profile's configured duration)",
					},
					"deep_research": map[string]any{
						"type":        "boolean",
						"description": "Use deep research depth for all topics",
						"default":     false,
					},
					"editorial_review": map[string]any{
						"type":        "boolean",
						"description": "Pause after scripting for human approval before audio rendering",
						"default":     false,
					},
					"generate_audio": map[string]any{
						"type":        "boolean",
						"description": "If false, stop after the script is persisted",
						"default":     true,
					},
					"generate_newsletter": map[string]any{
						"type":        "boolean",
						"description": "Also produce a markdown newsletter companion document",
						"default":     false,
					},
				},
				Required: []string{"profile_id"},
			},
		},
		{
			Name:        "get_job_status",
			Description: "Get the status snapshot of a generation job: current stage, progress percent, activity log, and (once available) the resulting episode id.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"job_id": map[string]any{
						"type":        "string",
						"description": "The job id returned from start_episode_job",
					},
				},
				Required: []string{"job_id"},
			},
		},
		{
			Name:        "cancel_job",
			Description: "Cancel a running or waiting-for-review job. Cancellation takes effect at the next stage boundary.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"job_id": map[string]any{
						"type":        "string",
						"description": "The job id to cancel",
					},
				},
				Required: []string{"job_id"},
			},
		},
		{
			Name:        "approve_job",
			Description: "Approve a job paused for editorial review, optionally replacing its script, and resume it at audio rendering.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"job_id": map[string]any{
						"type":        "string",
						"description": "The job id waiting for review",
					},
					"edited_script": map[string]any{
						"type":        "object",
						"description": "Optional replacement script JSON; if omitted, the draft script is kept as-is",
					},
				},
				Required: []string{"job_id"},
			},
		},
		{
			Name:        "list_profile_episodes",
			Description: "List published episodes for a profile, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"profile_id": map[string]any{
						"type":        "string",
						"description": "The profile to list episodes for",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
				},
				Required: []string{"profile_id"},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	orch  *orchestrator.Orchestrator
	store *store.Store
	log   *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(orch *orchestrator.Orchestrator, st *store.Store, logger *slog.Logger) *Handlers {
	return &Handlers{orch: orch, store: st, log: logger}
}

// HandleStartEpisodeJob starts a generation job for a profile.
func (h *Handlers) HandleStartEpisodeJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.start_episode_job")
	defer span.End()

	profileID := mcp.ParseString(req, "profile_id", "")
	if profileID == "" {
		span.SetStatus(codes.Error, "missing profile_id")
		return mcp.NewToolResultError("profile_id is required"), nil
	}

	opts := model.JobOptions{
		TopicCount:         parseIntParam(req, "topic_count", 0),
		DurationMinutes:    parseIntParam(req, "duration_minutes", 0),
		DeepResearch:       parseBoolParam(req, "deep_research", false),
		EditorialReview:    parseBoolParam(req, "editorial_review", false),
		GenerateAudio:      parseBoolParam(req, "generate_audio", true),
		GenerateNewsletter: parseBoolParam(req, "generate_newsletter", false),
		IsRecoverable:       true,
	}

	span.SetAttributes(attribute.String("profile_id", profileID))

	id, err := h.orch.Start(ctx, profileID, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start job: %v", err)), nil
	}

	span.SetAttributes(attribute.String("job_id", id))
	h.log.InfoContext(ctx, "episode job started", "job_id", id, "profile_id", profileID)

	return jsonResult(map[string]any{
		"job_id":  id,
		"status":  "pending",
		"message": "Episode generation started. Use get_job_status to check progress.",
	})
}

// HandleGetJobStatus returns a job's status snapshot.
func (h *Handlers) HandleGetJobStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_job_status")
	defer span.End()

	jobID := mcp.ParseString(req, "job_id", "")
	if jobID == "" {
		span.SetStatus(codes.Error, "missing job_id")
		return mcp.NewToolResultError("job_id is required"), nil
	}

	snapshot, err := h.orch.GetStatus(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("job %s not found", jobID)), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get status failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to get job status: %v", err)), nil
	}

	return jsonResult(snapshot)
}

// HandleCancelJob cancels a job.
func (h *Handlers) HandleCancelJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.cancel_job")
	defer span.End()

	jobID := mcp.ParseString(req, "job_id", "")
	if jobID == "" {
		span.SetStatus(codes.Error, "missing job_id")
		return mcp.NewToolResultError("job_id is required"), nil
	}

	ok, err := h.orch.Cancel(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to cancel job: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job %s is not in a cancellable state", jobID)), nil
	}

	return jsonResult(map[string]bool{"ok": true})
}

// HandleApproveJob approves a job waiting for review.
func (h *Handlers) HandleApproveJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.approve_job")
	defer span.End()

	jobID := mcp.ParseString(req, "job_id", "")
	if jobID == "" {
		span.SetStatus(codes.Error, "missing job_id")
		return mcp.NewToolResultError("job_id is required"), nil
	}

	var editedScript *model.PodcastScript
	if args := req.GetArguments(); args != nil {
		if raw, ok := args["edited_script"]; ok && raw != nil {
			data, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid edited_script: %v", err)), nil
			}
			var script model.PodcastScript
			if err := json.Unmarshal(data, &script); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid edited_script: %v", err)), nil
			}
			editedScript = &script
		}
	}

	if err := h.orch.Approve(ctx, jobID, editedScript); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to approve job: %v", err)), nil
	}

	return jsonResult(map[string]bool{"ok": true})
}

// HandleListProfileEpisodes lists a profile's episodes.
func (h *Handlers) HandleListProfileEpisodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_profile_episodes")
	defer span.End()

	profileID := mcp.ParseString(req, "profile_id", "")
	if profileID == "" {
		span.SetStatus(codes.Error, "missing profile_id")
		return mcp.NewToolResultError("profile_id is required"), nil
	}
	limit := parseIntParam(req, "limit", 20)

	episodes, err := h.store.ListEpisodesByProfile(ctx, profileID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list episodes failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list episodes: %v", err)), nil
	}

	out := make([]map[string]any, 0, len(episodes))
	for _, ep := range episodes {
		entry := map[string]any{
			"id":               ep.ID,
			"title":            ep.Title,
			"published_at":     ep.PublishedAt,
			"duration_seconds": ep.DurationSeconds,
		}
		if ep.AudioURL != "" {
			entry["audio_url"] = ep.AudioURL
		}
		if ep.NewsletterURL != "" {
			entry["newsletter_url"] = ep.NewsletterURL
		}
		out = append(out, entry)
	}

	return jsonResult(map[string]any{"episodes": out, "count": len(out)})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

func parseBoolParam(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	if v, ok := raw.(bool); ok {
		return v
	}
	return defaultVal
}
