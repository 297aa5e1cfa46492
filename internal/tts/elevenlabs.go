package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/apresai/podcastos/internal/model"
)

const (
	DefaultVoiceAlex = "JBFqnCBsd6RMkjVDRZzb" // George
	DefaultVoiceSam  = "EXAVITQu4vr4xnSDxMaL"  // Sarah

	apiBaseURL   = "https://api.elevenlabs.io/v1/text-to-speech"
	modelID      = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"

	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	backoffMulti   = 2
	maxBackoff     = 10 * time.Second
)

type ttsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

type ElevenLabsClient struct {
	voiceAlex  string
	voiceSam   string
	apiKey     string
	httpClient *http.Client
}

func NewElevenLabsClient(voiceAlex, voiceSam string) *ElevenLabsClient {
	if voiceAlex == "" {
		voiceAlex = DefaultVoiceAlex
	}
	if voiceSam == "" {
		voiceSam = DefaultVoiceSam
	}
	return &ElevenLabsClient{
		voiceAlex:  voiceAlex,
		voiceSam:   voiceSam,
		apiKey:     os.Getenv("ELEVENLABS_API_KEY"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ElevenLabsClient) VoiceAlexID() string { return c.voiceAlex }
func (c *ElevenLabsClient) VoiceSamID() string  { return c.voiceSam }

func (c *ElevenLabsClient) Synthesize(ctx context.Context, segment model.DialogueLine, voiceID string) ([]byte, error) {
	reqBody := ttsRequest{
		Text:    segment.Text,
		ModelID: modelID,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", apiBaseURL, voiceID, outputFormat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests ||
		res.StatusCode >= http.StatusInternalServerError {
		errBody, _ := io.ReadAll(res.Body)
		return nil, &RetryableError{
			StatusCode: res.StatusCode,
			Body:       string(errBody),
		}
	}

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("ElevenLabs API error (status %d): %s", res.StatusCode, string(errBody))
	}

	return io.ReadAll(res.Body)
}

func (c *ElevenLabsClient) synthesizeWithRetry(ctx context.Context, seg model.DialogueLine, voiceID string) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		audio, err := c.Synthesize(ctx, seg, voiceID)
		if err == nil {
			return audio, nil
		}

		if _, ok := err.(*RetryableError); !ok {
			return nil, err // Non-retryable error
		}

		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(backoffMulti)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return nil, lastErr
}

// ElevenLabsProvider adapts ElevenLabsClient to the Provider interface used
// by the renderer's provider set.
type ElevenLabsProvider struct {
	client *ElevenLabsClient
	voices VoiceMap
}

// NewElevenLabsProvider constructs a Provider-conforming ElevenLabs client.
// cfg.APIKey, if set, replaces ELEVENLABS_API_KEY. cfg.Stability, cfg.Speed
// and cfg.Model are not read: every request sends stability 0.5, speed 1.0
// and the eleven_multilingual_v2 model.
func NewElevenLabsProvider(voice1, voice2, voice3 string, cfg ProviderConfig) *ElevenLabsProvider {
	client := NewElevenLabsClient(voice1, voice2)
	if cfg.APIKey != "" {
		client.apiKey = cfg.APIKey
	}
	v3 := voice3
	if v3 == "" {
		v3 = client.voiceSam // no third default voice; reuse Sam's rather than leave empty
	}
	return &ElevenLabsProvider{
		client: client,
		voices: VoiceMap{
			Host1: Voice{ID: client.voiceAlex, Name: "Alex", Provider: "elevenlabs"},
			Host2: Voice{ID: client.voiceSam, Name: "Sam", Provider: "elevenlabs"},
			Host3: Voice{ID: v3, Name: "Jordan", Provider: "elevenlabs"},
		},
	}
}

func (p *ElevenLabsProvider) Name() string { return "elevenlabs" }

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	var audio []byte
	err := WithRetry(ctx, func() error {
		var synthErr error
		audio, synthErr = p.client.synthesizeWithRetry(ctx, model.DialogueLine{Text: text}, voice.ID)
		return synthErr
	})
	if err != nil {
		return AudioResult{}, err
	}
	return AudioResult{Data: audio, Format: FormatMP3}, nil
}

func (p *ElevenLabsProvider) DefaultVoices() VoiceMap { return p.voices }

func (p *ElevenLabsProvider) Close() error { return nil }

func elevenLabsAvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{ID: DefaultVoiceAlex, Name: "George", Gender: "male", Description: "Warm, narrative", DefaultFor: "Voice 1"},
		{ID: DefaultVoiceSam, Name: "Sarah", Gender: "female", Description: "Clear, analytical", DefaultFor: "Voice 2"},
	}
}
