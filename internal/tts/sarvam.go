package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
)

// errorBodyLimit caps how much of a failed response is kept for diagnostics.
const errorBodyLimit = 2048

type sarvamSynth struct {
	endpoint   string
	apiKey     string
	model      string
	sampleRate int
	timeout    time.Duration
	client     *http.Client
}

type sarvamRequest struct {
	Inputs             []string `json:"inputs"`
	TargetLanguageCode string   `json:"target_language_code"`
	Speaker            string   `json:"speaker"`
	Pitch              float64  `json:"pitch"`
	Pace               float64  `json:"pace"`
	Loudness           float64  `json:"loudness"`
	SpeechSampleRate   int      `json:"speech_sample_rate,omitempty"`
	Model              string   `json:"model,omitempty"`
}

type sarvamResponse struct {
	RequestID string   `json:"request_id"`
	Audios    []string `json:"audios"`
}

// NewSarvamSynth returns a synthesizer backed by the Sarvam text-to-speech
// HTTP API. A nil client uses http.DefaultClient.
func NewSarvamSynth(cfg config.SynthesisConfig, client *http.Client) Synthesizer {
	if client == nil {
		client = http.DefaultClient
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &sarvamSynth{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		sampleRate: cfg.SampleRate,
		timeout:    timeout,
		client:     client,
	}
}

func (s *sarvamSynth) Synthesize(ctx context.Context, req Request) (audio.Segment, error) {
	if s.apiKey == "" {
		return audio.Segment{}, ErrMissingAPIKey
	}
	payload := sarvamRequest{
		Inputs:             []string{req.Text},
		TargetLanguageCode: req.Language.Code(),
		Speaker:            req.Speaker,
		Pitch:              req.Prosody.Pitch,
		Pace:               req.Prosody.Pace,
		Loudness:           req.Prosody.Loudness,
		SpeechSampleRate:   s.sampleRate,
		Model:              s.model,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return audio.Segment{}, fmt.Errorf("marshal synthesis request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return audio.Segment{}, fmt.Errorf("create synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return audio.Segment{}, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return audio.Segment{}, &BackendError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var decoded sarvamResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return audio.Segment{}, fmt.Errorf("decode synthesis response: %w", err)
	}
	if len(decoded.Audios) == 0 || decoded.Audios[0] == "" {
		return audio.Segment{}, ErrMissingAudio
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Audios[0])
	if err != nil {
		return audio.Segment{}, fmt.Errorf("decode synthesis audio: %w", err)
	}
	if len(data) == 0 {
		return audio.Segment{}, ErrMissingAudio
	}
	return audio.Segment{Data: data, Format: audio.FormatWAV}, nil
}
