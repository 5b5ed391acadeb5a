package audio

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Encoder converts audio between container formats. Implementations are
// provided by the codec capability probe.
type Encoder interface {
	Name() string
	Available() bool
	Encode(ctx context.Context, data []byte, from, to Format) ([]byte, error)
}

// Transcoder re-encodes segments into the configured output format and
// degrades to the unchanged input whenever the codec cannot help.
type Transcoder struct {
	encoder Encoder
	logger  *slog.Logger
}

func NewTranscoder(encoder Encoder, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		encoder: encoder,
		logger:  logger.With(slog.String("component", "audio-transcoder")),
	}
}

// Transcode returns seg encoded as target and true, or seg unchanged and
// false when no conversion happened. The returned segment's Format always
// describes its data.
func (t *Transcoder) Transcode(ctx context.Context, seg Segment, target Format) (Segment, bool) {
	if target == "" || seg.Format == target {
		return seg, false
	}
	if t.encoder == nil || !t.encoder.Available() {
		t.logger.Warn("codec unavailable, keeping source format",
			slog.String("source", string(seg.Format)),
			slog.String("target", string(target)))
		return seg, false
	}
	data, err := t.encoder.Encode(ctx, seg.Data, seg.Format, target)
	if err != nil {
		t.logger.Error("transcode failed, keeping source format",
			slog.String("codec", t.encoder.Name()),
			slog.String("source", string(seg.Format)),
			slog.String("target", string(target)),
			slogError(err))
		return seg, false
	}
	if len(data) == 0 {
		t.logger.Error("transcode produced no output, keeping source format",
			slog.String("codec", t.encoder.Name()),
			slog.String("target", string(target)))
		return seg, false
	}
	t.logger.Debug("transcoded segment",
		slog.String("codec", t.encoder.Name()),
		slog.String("target", string(target)),
		slog.String("input", humanize.Bytes(uint64(seg.Len()))),
		slog.String("output", humanize.Bytes(uint64(len(data)))))
	return Segment{Data: data, Format: target}, true
}
