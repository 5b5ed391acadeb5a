package audio

import (
	"fmt"
	"strings"
)

// Format is the container format of an audio payload.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

// ParseFormat accepts a container name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatWAV, FormatMP3:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported audio format %q", s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatMP3 {
		return "audio/mpeg"
	}
	return "audio/wav"
}

// Segment is one encoded audio payload. The Format always names the true
// encoding of Data.
type Segment struct {
	Data   []byte
	Format Format
}

// Len returns the payload size in bytes.
func (s Segment) Len() int {
	return len(s.Data)
}

func (s Segment) Empty() bool {
	return len(s.Data) == 0
}
