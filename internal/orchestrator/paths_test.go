package orchestrator

import (
	"testing"

	"github.com/apresai/podcastos/internal/model"
)

func TestWriteReadScriptRoundTrips(t *testing.T) {
	dir := t.TempDir()
	script := model.PodcastScript{
		Title: "Test Episode",
		Intro: []model.DialogueLine{{Speaker: "alex", Text: "Welcome."}},
	}

	if err := writeScript(dir, "ep-1", script); err != nil {
		t.Fatalf("writeScript: %v", err)
	}
	got, err := readScript(dir, "ep-1")
	if err != nil {
		t.Fatalf("readScript: %v", err)
	}
	if got.Title != script.Title || len(got.Intro) != 1 || got.Intro[0].Text != "Welcome." {
		t.Fatalf("readScript = %+v, want round-trip of %+v", got, script)
	}
}

func TestReadScriptMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := readScript(dir, "missing"); err == nil {
		t.Fatalf("readScript: expected error for missing script file")
	}
}

func TestEncodeDecodeInfoRoundTrips(t *testing.T) {
	info := map[string]any{}
	topics := []model.VerifiedTopic{{FinalHeadline: "Topic A", PriorityRank: 1}}

	if err := encodeInfo(info, "verifiedTopics", topics); err != nil {
		t.Fatalf("encodeInfo: %v", err)
	}

	var got []model.VerifiedTopic
	if err := decodeInfo(info, "verifiedTopics", &got); err != nil {
		t.Fatalf("decodeInfo: %v", err)
	}
	if len(got) != 1 || got[0].FinalHeadline != "Topic A" || got[0].PriorityRank != 1 {
		t.Fatalf("decodeInfo = %+v, want round-trip of %+v", got, topics)
	}
}

func TestDecodeInfoMissingKeyErrors(t *testing.T) {
	var out []model.VerifiedTopic
	if err := decodeInfo(map[string]any{}, "verifiedTopics", &out); err == nil {
		t.Fatalf("decodeInfo: expected error for missing key")
	}
}
