package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apresai/podcastos/internal/model"
)

// scriptPath is the on-disk location of a paused-for-review (or completed)
// episode's script (spec.md §6 on-disk layout).
func scriptPath(workDir, episodeID string) string {
	return filepath.Join(workDir, "scripts", episodeID+".json")
}

func newsletterPath(workDir, episodeID string) string {
	return filepath.Join(workDir, "newsletters", episodeID+".md")
}

func writeNewsletter(workDir, episodeID, markdown string) error {
	dir := filepath.Join(workDir, "newsletters")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write newsletter: %w", err)
	}
	if err := os.WriteFile(newsletterPath(workDir, episodeID), []byte(markdown), 0644); err != nil {
		return fmt.Errorf("write newsletter: %w", err)
	}
	return nil
}

// writeScript persists a script so it survives the review pause and, if the
// process restarts while waiting for review, approve() can still find it.
func writeScript(workDir, episodeID string, script model.PodcastScript) error {
	if err := os.MkdirAll(filepath.Join(workDir, "scripts"), 0755); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := os.WriteFile(scriptPath(workDir, episodeID), data, 0644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

func readScript(workDir, episodeID string) (model.PodcastScript, error) {
	data, err := os.ReadFile(scriptPath(workDir, episodeID))
	if err != nil {
		return model.PodcastScript{}, fmt.Errorf("read script: %w", err)
	}
	var script model.PodcastScript
	if err := json.Unmarshal(data, &script); err != nil {
		return model.PodcastScript{}, fmt.Errorf("read script: %w", err)
	}
	return script, nil
}

// encodeInfo stores v under key in a job's free-form Info map via a JSON
// round-trip, so it comes back as plain map/slice values the same way it
// would after a store round-trip through the jsonb column.
func encodeInfo(info map[string]any, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	info[key] = decoded
	return nil
}

func decodeInfo(info map[string]any, key string, out any) error {
	v, ok := info[key]
	if !ok {
		return fmt.Errorf("missing %s in job info", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return json.Unmarshal(raw, out)
}
