package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/apresai/podcastos/internal/orchestrator"
	"github.com/apresai/podcastos/internal/store"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandleStartEpisodeJobMissingProfileID(t *testing.T) {
	h := NewHandlers(orchestrator.New(orchestrator.Deps{}, context.Background()), &store.Store{}, nil)
	result, err := h.HandleStartEpisodeJob(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleStartEpisodeJob: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected a tool error when profile_id is missing")
	}
}

func TestHandleGetJobStatusMissingJobID(t *testing.T) {
	h := NewHandlers(orchestrator.New(orchestrator.Deps{}, context.Background()), &store.Store{}, nil)
	result, err := h.HandleGetJobStatus(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleGetJobStatus: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected a tool error when job_id is missing")
	}
}

func TestParseIntParamDefaultsOnWrongType(t *testing.T) {
	req := callRequest(map[string]any{"topic_count": "five"})
	if got := parseIntParam(req, "topic_count", 3); got != 3 {
		t.Fatalf("parseIntParam = %d, want default 3 for a non-numeric value", got)
	}
}

func TestParseBoolParamReadsBoolAndDefaultsOnMissingKey(t *testing.T) {
	req := callRequest(map[string]any{"deep_research": true})
	if got := parseBoolParam(req, "deep_research", false); !got {
		t.Fatalf("parseBoolParam = false, want true")
	}
	if got := parseBoolParam(req, "missing_key", true); !got {
		t.Fatalf("parseBoolParam default not honored for missing key")
	}
}

func TestJSONResultMarshalsValue(t *testing.T) {
	result, err := jsonResult(map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("jsonResult: %v", err)
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content")
	}
	var decoded map[string]bool
	if err := json.Unmarshal([]byte(text.Text), &decoded); err != nil {
		t.Fatalf("unmarshal result text: %v", err)
	}
	if !decoded["ok"] {
		t.Fatalf("decoded result missing ok=true")
	}
}
