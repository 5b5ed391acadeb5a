package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrUndecodable = errors.New("segment is not decodable wav")

// Buffer is a decoded PCM segment.
type Buffer struct {
	PCM      *goaudio.IntBuffer
	BitDepth int
}

// SampleRate returns the sample rate in Hz.
func (b Buffer) SampleRate() int {
	return b.PCM.Format.SampleRate
}

// Channels returns the number of interleaved channels.
func (b Buffer) Channels() int {
	return b.PCM.Format.NumChannels
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	return samplesDuration(len(b.PCM.Data), b.Channels(), b.SampleRate())
}

// compatible reports whether other can be appended to b without resampling.
func (b Buffer) compatible(other Buffer) bool {
	return b.SampleRate() == other.SampleRate() &&
		b.Channels() == other.Channels() &&
		b.BitDepth == other.BitDepth
}

func samplesDuration(samples, channels, sampleRate int) time.Duration {
	if channels <= 0 || sampleRate <= 0 {
		return 0
	}
	frames := samples / channels
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// Decode parses a WAV segment into PCM samples.
func Decode(seg Segment) (buf Buffer, err error) {
	if seg.Format != FormatWAV {
		return Buffer{}, fmt.Errorf("%w: format %s", ErrUndecodable, seg.Format)
	}
	if len(seg.Data) == 0 {
		return Buffer{}, fmt.Errorf("%w: empty payload", ErrUndecodable)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = Buffer{}
			err = fmt.Errorf("%w: decoder panic: %v", ErrUndecodable, r)
		}
	}()

	dec := wav.NewDecoder(bytes.NewReader(seg.Data))
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if pcm == nil || pcm.Format == nil {
		return Buffer{}, fmt.Errorf("%w: missing pcm data", ErrUndecodable)
	}
	if pcm.Format.SampleRate <= 0 || pcm.Format.NumChannels <= 0 || dec.BitDepth == 0 {
		return Buffer{}, fmt.Errorf("%w: invalid header", ErrUndecodable)
	}
	return Buffer{PCM: pcm, BitDepth: int(dec.BitDepth)}, nil
}

// EncodeWAV writes interleaved PCM samples as a linear PCM WAV file.
func EncodeWAV(samples []int, sampleRate, channels, bitDepth int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("invalid wav parameters: rate=%d channels=%d depth=%d", sampleRate, channels, bitDepth)
	}
	out := &seekBuffer{}
	enc := wav.NewEncoder(out, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return out.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once all samples are written.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek: negative position %d", next)
	}
	s.pos = int(next)
	return next, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf
}
