package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

var (
	ErrMissingAudio  = errors.New("synthesis response carried no audio")
	ErrMissingAPIKey = errors.New("synthesis api key not configured")
)

// Prosody controls delivery of the synthesized voice.
type Prosody struct {
	Pitch    float64 `json:"pitch"`
	Pace     float64 `json:"pace"`
	Loudness float64 `json:"loudness"`
}

// Request contains parameters to synthesize one chunk of speech.
type Request struct {
	Text     string
	Language script.Language
	Speaker  string
	Prosody  Prosody
}

// Synthesizer is the contract for producing audio from text. Each call
// yields one complete encoded segment.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (audio.Segment, error)
}

// BackendError is returned when the speech backend answers with a non-2xx
// status.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("synthesis backend returned status %d: %s", e.Status, e.Body)
}

// ChunkError attributes a synthesis failure to the chunk that caused it.
type ChunkError struct {
	Language script.Language
	Index    int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("synthesize %s chunk %d: %v", e.Language, e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
