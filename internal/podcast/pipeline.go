package podcast

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"github.com/loqalabs/loqa-podcast/internal/storage"
	"github.com/loqalabs/loqa-podcast/internal/tts"
)

// AudioStore persists finished audio.
type AudioStore interface {
	Save(lang script.Language, seg audio.Segment) (storage.Stored, error)
}

// renderer turns one validated chunk set into a stored audio file.
type renderer struct {
	synth       tts.Synthesizer
	combiner    *audio.Combiner
	transcoder  *audio.Transcoder
	store       AudioStore
	format      audio.Format
	concurrency int
	logger      *slog.Logger
}

func (r *renderer) render(ctx context.Context, set script.ChunkSet, voice tts.Voice) (GenerationResult, error) {
	segments, err := tts.SynthesizeAll(ctx, r.synth, set, voice, tts.RunOptions{Concurrency: r.concurrency})
	if err != nil {
		return GenerationResult{}, newError(StepSynthesize, set.Language, err)
	}

	combined, report, err := r.combiner.Combine(segments)
	if err != nil {
		return GenerationResult{}, &Error{Kind: KindInternal, Stage: StepCombine, Language: set.Language, Err: err}
	}

	final, transcoded := r.transcoder.Transcode(ctx, combined, r.format)

	stored, err := r.store.Save(set.Language, final)
	if err != nil {
		return GenerationResult{}, &Error{Kind: KindInternal, Stage: StepStore, Language: set.Language, Err: err}
	}

	r.logger.Info("language rendered",
		slog.String("language", string(set.Language)),
		slog.Int("chunks", set.Count),
		slog.String("file", stored.Name),
		slog.String("size", humanize.Bytes(uint64(stored.Bytes))),
		slog.Duration("duration", report.Duration),
		slog.Bool("degraded", report.Degraded))

	return GenerationResult{
		Language:   set.Language,
		Path:       stored.Path,
		Ref:        stored.Ref,
		Format:     stored.Format,
		Bytes:      stored.Bytes,
		Chunks:     set.Count,
		DurationMS: report.Duration.Milliseconds(),
		Speaker:    voice.Speaker,
		Degraded:   report.Degraded,
		Transcoded: transcoded,
	}, nil
}
