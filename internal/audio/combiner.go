package audio

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

var ErrNoSegments = errors.New("no audio segments to combine")

// CombineReport summarizes how a set of segments was stitched together.
type CombineReport struct {
	Decoded  int           `json:"decoded"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	// Degraded is set when the output is the first raw segment rather than
	// the concatenation of all segments.
	Degraded bool `json:"degraded"`
}

// Combiner concatenates decoded WAV segments into one continuous track.
type Combiner struct {
	logger *slog.Logger
}

func NewCombiner(logger *slog.Logger) *Combiner {
	return &Combiner{logger: logger.With(slog.String("component", "audio-combiner"))}
}

// Combine appends the segments in order. Segments that cannot be decoded, or
// whose sample layout differs from the first decoded segment, are skipped.
// When nothing can be combined the first raw segment is returned and the
// report is marked degraded; only an empty input is an error.
func (c *Combiner) Combine(segs []Segment) (out Segment, report CombineReport, err error) {
	if len(segs) == 0 {
		return Segment{}, CombineReport{}, ErrNoSegments
	}
	if len(segs) == 1 {
		if buf, decErr := Decode(segs[0]); decErr == nil {
			report.Decoded = 1
			report.Duration = buf.Duration()
		}
		return segs[0], report, nil
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("combine panicked, using first segment", slog.Any("panic", r))
			out, report, err = c.fallback(segs, len(segs)), CombineReport{Skipped: len(segs), Degraded: true}, nil
		}
	}()

	var (
		base   *Buffer
		merged []int
	)
	for i, seg := range segs {
		buf, decErr := Decode(seg)
		if decErr != nil {
			report.Skipped++
			c.logger.Warn("skipping undecodable segment",
				slog.Int("index", i),
				slog.String("size", humanize.Bytes(uint64(seg.Len()))),
				slogError(decErr))
			continue
		}
		if base == nil {
			b := buf
			base = &b
			merged = make([]int, 0, len(buf.PCM.Data)*len(segs))
		} else if !base.compatible(buf) {
			report.Skipped++
			c.logger.Warn("skipping segment with mismatched layout",
				slog.Int("index", i),
				slog.Int("sample_rate", buf.SampleRate()),
				slog.Int("channels", buf.Channels()),
				slog.Int("bit_depth", buf.BitDepth))
			continue
		}
		merged = append(merged, buf.PCM.Data...)
		report.Decoded++
		report.Duration += buf.Duration()
	}

	if base == nil {
		c.logger.Warn("no segment could be decoded, using first segment", slog.Int("segments", len(segs)))
		return c.fallback(segs, report.Skipped), CombineReport{Skipped: report.Skipped, Degraded: true}, nil
	}

	data, encErr := EncodeWAV(merged, base.SampleRate(), base.Channels(), base.BitDepth)
	if encErr != nil {
		c.logger.Error("encode combined audio failed, using first segment", slogError(encErr))
		return c.fallback(segs, report.Skipped), CombineReport{Skipped: report.Skipped, Degraded: true}, nil
	}

	c.logger.Debug("combined segments",
		slog.Int("decoded", report.Decoded),
		slog.Int("skipped", report.Skipped),
		slog.Duration("duration", report.Duration),
		slog.String("size", humanize.Bytes(uint64(len(data)))))
	return Segment{Data: data, Format: FormatWAV}, report, nil
}

func (c *Combiner) fallback(segs []Segment, skipped int) Segment {
	c.logger.Warn("audio combine degraded", slog.Int("skipped", skipped), slog.Int("segments", len(segs)))
	return segs[0]
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
