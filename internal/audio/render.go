// Package audio implements the Audio Renderer (C6): turns a synthesized
// script into per-line audio units, stitches them into per-section files,
// then into one episode file, and emits the segment manifest spec.md §4.6
// describes. Grounded on internal/tts's Provider/ProviderSet/WithRetry and
// internal/assembly's FFmpeg wrapper, generalized from per-segment to
// per-dialogue-line synthesis across three sections.
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/apresai/podcastos/internal/assembly"
	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/tts"
)

// cloudParallelism is the default concurrent-synthesis limit for cloud TTS
// providers; nonCloudParallelism applies to everything else (spec.md §4.6).
const (
	cloudParallelism    = 5
	nonCloudParallelism = 3
	wordsPerMinute      = 150
	interUnitSilenceMs  = 350
	interSectionSilence = 500 // ms
)

var cloudProviders = map[string]bool{
	"elevenlabs":             true,
	"google":                 true,
	"gemini":                 true,
	"gemini-vertex":          true,
	"gemini-vertex-express":  true,
	"polly":                  true,
}

// Renderer drives audio rendering for one episode.
type Renderer struct {
	providers *tts.ProviderSet
	assembler assembly.Assembler
	workDir   string
}

// New constructs a Renderer. workDir is the root directory under which each
// episode gets its own subdirectory of intermediate and final audio files.
func New(providers *tts.ProviderSet, workDir string) *Renderer {
	return &Renderer{
		providers: providers,
		assembler: assembly.NewFFmpegAssembler(),
		workDir:   workDir,
	}
}

type section struct {
	kind       model.ContentType // intro, topic, outro
	topicID    string
	title      string
	lines      []model.DialogueLine
	transcript string
}

// Render synthesizes script into a stitched AudioEpisode. voiceOf resolves a
// lowercased speaker name to a provider-specific voice.
func (r *Renderer) Render(ctx context.Context, script model.PodcastScript, providerName string, voiceOf func(speaker string) tts.Voice) (model.AudioEpisode, error) {
	provider, err := r.providers.Get(providerName)
	if err != nil {
		return model.AudioEpisode{}, fmt.Errorf("render: %w", err)
	}

	episodeDir, err := os.MkdirTemp(r.workDir, "episode-*")
	if err != nil {
		return model.AudioEpisode{}, fmt.Errorf("render: mkdir: %w", err)
	}

	sections := buildSections(script)

	parallelism := nonCloudParallelism
	if cloudProviders[providerName] {
		parallelism = cloudParallelism
	}

	var skipped int
	var audioSegments []model.AudioSegment
	cumulative := 0.0

	for secIdx, sec := range sections {
		unitPaths, unitDur, secSkipped, err := r.synthesizeSection(ctx, provider, sec, secIdx, episodeDir, parallelism, voiceOf)
		if err != nil {
			return model.AudioEpisode{}, fmt.Errorf("render: section %d (%s): %w", secIdx, sec.kind, err)
		}
		skipped += secSkipped
		if len(unitPaths) == 0 {
			continue
		}

		sectionFile := filepath.Join(episodeDir, fmt.Sprintf("%03d_%s.mp3", secIdx, sec.kind))
		if err := r.assembler.Assemble(ctx, unitPaths, episodeDir, sectionFile); err != nil {
			return model.AudioEpisode{}, fmt.Errorf("render: stitch section %d: %w", secIdx, err)
		}

		if secIdx > 0 {
			cumulative += float64(interSectionSilence) / 1000.0
		}
		audioSegments = append(audioSegments, model.AudioSegment{
			SequenceIndex:    len(audioSegments),
			TopicID:          sec.topicID,
			ContentType:      sec.kind,
			TopicHeadline:    sec.title,
			Transcript:       sec.transcript,
			StartTimeSeconds: cumulative,
			DurationSeconds:  unitDur,
			LocalPath:        sectionFile,
		})
		cumulative += unitDur
	}

	var sectionFiles []string
	for _, s := range audioSegments {
		sectionFiles = append(sectionFiles, s.LocalPath)
	}
	episodeFile := filepath.Join(episodeDir, "episode.mp3")
	if len(sectionFiles) > 0 {
		if err := r.assembler.Assemble(ctx, sectionFiles, episodeDir, episodeFile); err != nil {
			return model.AudioEpisode{}, fmt.Errorf("render: stitch episode: %w", err)
		}
	}

	return model.AudioEpisode{
		LocalPath:       episodeFile,
		DurationSeconds: cumulative,
		Segments:        audioSegments,
		SampleRate:      44100,
		BitrateKbps:     192,
		SkippedLines:    skipped,
	}, nil
}

func buildSections(script model.PodcastScript) []section {
	var out []section
	if len(script.Intro) > 0 {
		out = append(out, section{kind: model.ContentIntro, title: "Intro", lines: script.Intro, transcript: transcriptOf(script.Intro)})
	}
	for _, seg := range script.Segments {
		out = append(out, section{
			kind:       model.ContentTopic,
			topicID:    seg.TopicID,
			title:      seg.TopicHeadline,
			lines:      seg.Lines,
			transcript: transcriptOf(seg.Lines),
		})
	}
	if len(script.Outro) > 0 {
		out = append(out, section{kind: model.ContentOutro, title: "Outro", lines: script.Outro, transcript: transcriptOf(script.Outro)})
	}
	return out
}

// transcriptOf joins a section's dialogue lines into the flat transcript
// text stored on its AudioSegment.
func transcriptOf(lines []model.DialogueLine) string {
	var sb strings.Builder
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(l.Text)
	}
	return sb.String()
}

// synthesizeSection synthesizes every line in a section concurrently
// (bounded by parallelism), writes each unit to disk, and reports the
// section's total estimated duration.
func (r *Renderer) synthesizeSection(ctx context.Context, provider tts.Provider, sec section, secIdx int, dir string, parallelism int, voiceOf func(string) tts.Voice) ([]string, float64, int, error) {
	paths := make([]string, len(sec.lines))
	ok := make([]bool, len(sec.lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, line := range sec.lines {
		i, line := i, line
		g.Go(func() error {
			voice := voiceOf(line.Speaker)
			result, err := provider.Synthesize(gctx, line.Text, voice)
			if err != nil {
				// A failed unit is skipped, not fatal (spec.md §4.6 failure policy).
				return nil
			}

			rawPath := filepath.Join(dir, fmt.Sprintf("%03d_%s_%02d_%s_raw.%s", secIdx, sec.kind, i, line.Speaker, result.Format))
			if err := os.WriteFile(rawPath, result.Data, 0644); err != nil {
				return fmt.Errorf("write unit %d: %w", i, err)
			}

			path := rawPath
			if result.Format != tts.FormatMP3 {
				mp3Path := filepath.Join(dir, fmt.Sprintf("%03d_%s_%02d_%s.mp3", secIdx, sec.kind, i, line.Speaker))
				if err := assembly.ConvertToMP3(gctx, rawPath, string(result.Format), mp3Path); err != nil {
					return nil // non-fatal: treat as a failed unit
				}
				path = mp3Path
			}

			paths[i] = path
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}

	var kept []string
	var totalWords int
	skipped := 0
	for i, line := range sec.lines {
		if !ok[i] {
			skipped++
			continue
		}
		kept = append(kept, paths[i])
		totalWords += wordCount(line.Text)
	}
	duration := float64(totalWords) / wordsPerMinute * 60
	return kept, duration, skipped, nil
}

func wordCount(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
