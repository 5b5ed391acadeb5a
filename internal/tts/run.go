package tts

import (
	"context"
	"fmt"
	"net/http"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"golang.org/x/sync/errgroup"
)

// Voice selects the speaker and delivery for a whole run.
type Voice struct {
	Speaker string
	Prosody Prosody
}

// RunOptions tunes SynthesizeAll.
type RunOptions struct {
	// Concurrency above one synthesizes chunks in parallel; segments are
	// still returned in chunk order.
	Concurrency int
}

// SynthesizeAll synthesizes every chunk of set and returns the segments in
// chunk order. The first failure aborts the run and no segments are
// returned.
func SynthesizeAll(ctx context.Context, s Synthesizer, set script.ChunkSet, voice Voice, opts RunOptions) ([]audio.Segment, error) {
	segments := make([]audio.Segment, len(set.Chunks))
	request := func(c script.Chunk) Request {
		return Request{Text: c.Text, Language: set.Language, Speaker: voice.Speaker, Prosody: voice.Prosody}
	}

	if opts.Concurrency <= 1 {
		for i, c := range set.Chunks {
			seg, err := s.Synthesize(ctx, request(c))
			if err != nil {
				return nil, &ChunkError{Language: set.Language, Index: i, Err: err}
			}
			segments[i] = seg
		}
		return segments, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, c := range set.Chunks {
		g.Go(func() error {
			seg, err := s.Synthesize(gctx, request(c))
			if err != nil {
				return &ChunkError{Language: set.Language, Index: i, Err: err}
			}
			segments[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

// NewFromConfig builds the configured synthesizer, rate limited when the
// configuration asks for it.
func NewFromConfig(cfg config.SynthesisConfig, client *http.Client) (Synthesizer, error) {
	var (
		s   Synthesizer
		err error
	)
	switch cfg.Mode {
	case "sarvam":
		s = NewSarvamSynth(cfg, client)
	case "mock":
		s = NewMockSynth(cfg.SampleRate)
	case "exec":
		s, err = NewExecSynth(cfg.Command, cfg.SampleRate)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported synthesis mode %q", cfg.Mode)
	}
	return NewRateLimited(s, cfg.RequestsPerMinute), nil
}

// VoiceFromConfig returns the voice for lang, preferring speaker when set.
func VoiceFromConfig(cfg config.Config, lang script.Language, speaker string) Voice {
	if speaker == "" {
		speaker = DefaultSpeaker(cfg.Voices, lang)
	}
	return Voice{
		Speaker: speaker,
		Prosody: Prosody{
			Pitch:    cfg.Synthesis.Pitch,
			Pace:     cfg.Synthesis.Pace,
			Loudness: cfg.Synthesis.Loudness,
		},
	}
}

// DefaultSpeaker returns the configured speaker for lang.
func DefaultSpeaker(voices config.VoicesConfig, lang script.Language) string {
	if lang == script.Hindi {
		return voices.Hindi
	}
	return voices.English
}
