package tts

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

// msPerChar approximates speaking rate for the generated tone.
const msPerChar = 20

type mockSynth struct {
	sampleRate int
}

// NewMockSynth returns a synthesizer that renders a short sine tone per
// chunk. Output length is proportional to the text, so combined durations
// are predictable.
func NewMockSynth(sampleRate int) Synthesizer {
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	return &mockSynth{sampleRate: sampleRate}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) (audio.Segment, error) {
	if err := ctx.Err(); err != nil {
		return audio.Segment{}, err
	}
	chars := utf8.RuneCountInString(req.Text)
	if chars == 0 {
		return audio.Segment{}, fmt.Errorf("mock synth: empty text")
	}
	frames := m.sampleRate * chars * msPerChar / 1000
	freq := 440.0
	if req.Language == script.Hindi {
		freq = 330.0
	}
	samples := make([]int, frames)
	for i := range samples {
		samples[i] = int(3000 * math.Sin(2*math.Pi*freq*float64(i)/float64(m.sampleRate)))
	}
	data, err := audio.EncodeWAV(samples, m.sampleRate, 1, 16)
	if err != nil {
		return audio.Segment{}, err
	}
	return audio.Segment{Data: data, Format: audio.FormatWAV}, nil
}
