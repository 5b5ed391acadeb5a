package capability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestUnavailableCodecRefuses(t *testing.T) {
	c := Unavailable(newLogger())
	if c.Available() {
		t.Fatalf("expected unavailable codec")
	}
	if c.Name() != "unavailable" {
		t.Fatalf("unexpected name %q", c.Name())
	}
	if _, err := c.Encode(context.Background(), []byte("x"), audio.FormatWAV, audio.FormatMP3); !errors.Is(err, ErrCodecUnavailable) {
		t.Fatalf("expected ErrCodecUnavailable, got %v", err)
	}
}

func TestEncodeArgs(t *testing.T) {
	got := strings.Join(encodeArgs(audio.FormatWAV, audio.FormatMP3, "192k"), " ")
	want := "-hide_banner -loglevel error -f wav -i pipe:0 -codec:a libmp3lame -b:a 192k -q:a 2 -f mp3 pipe:1"
	if got != want {
		t.Fatalf("unexpected args:\n got %s\nwant %s", got, want)
	}
}

// fakeFFmpeg writes a shell script that answers -version and otherwise
// prefixes stdin with a marker.
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do if [ \"$a\" = \"-version\" ]; then echo 'ffmpeg version test'; exit 0; fi; done\n" +
		"printf 'MP3:'\ncat\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return path
}

func TestProbeConfiguredPath(t *testing.T) {
	path := fakeFFmpeg(t)
	c := Probe(context.Background(), config.CodecConfig{FFmpegPath: path, Bitrate: "128k"}, newLogger())
	if !c.Available() || c.Name() != "ffmpeg" {
		t.Fatalf("expected ffmpeg codec, got %q", c.Name())
	}
	if c.Version() != "ffmpeg version test" {
		t.Fatalf("unexpected version %q", c.Version())
	}
	out, err := c.Encode(context.Background(), []byte("pcm"), audio.FormatWAV, audio.FormatMP3)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(out) != "MP3:pcm" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestProbeRejectsBrokenBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	c := Probe(context.Background(), config.CodecConfig{FFmpegPath: path}, newLogger())
	if c.Available() && c.path == path {
		t.Fatalf("broken binary should not be selected")
	}
}
