package capability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/mattn/go-shellwords"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ErrCodecUnavailable = errors.New("audio codec unavailable")

// Locations checked when ffmpeg is not on PATH.
var fallbackPaths = []string{
	"/usr/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
}

const probeTimeout = 5 * time.Second

// Codec is the audio encoding capability detected on this host. A Codec with
// no binary reports itself unavailable and refuses every conversion.
type Codec struct {
	name    string
	path    string
	prefix  []string
	version string
	bitrate string
	logger  *slog.Logger
}

// Probe detects an ffmpeg binary once. The configured path may carry extra
// leading arguments, for example a wrapper such as "nice -n 10 ffmpeg".
func Probe(ctx context.Context, cfg config.CodecConfig, logger *slog.Logger) *Codec {
	log := logger.With(slog.String("component", "codec-capability"))
	c := &Codec{name: "unavailable", bitrate: cfg.Bitrate, logger: log}
	if c.bitrate == "" {
		c.bitrate = "192k"
	}

	candidates, err := candidates(cfg.FFmpegPath)
	if err != nil {
		log.Warn("invalid ffmpeg path", slog.String("path", cfg.FFmpegPath), slogError(err))
	}
	for _, argv := range candidates {
		version, err := runVersion(ctx, argv)
		if err != nil {
			log.Debug("ffmpeg candidate rejected", slog.String("path", argv[0]), slogError(err))
			continue
		}
		c.name = "ffmpeg"
		c.path = argv[0]
		c.prefix = argv[1:]
		c.version = version
		log.Info("audio codec detected", slog.String("path", c.path), slog.String("version", version))
		break
	}
	if !c.Available() {
		log.Warn("ffmpeg not found, audio will be stored in its synthesized format")
	}

	if err := c.initMetrics(otel.Meter("github.com/loqalabs/loqa-podcast/capability")); err != nil {
		log.Warn("failed to initialize metrics", slogError(err))
	}
	return c
}

// Unavailable returns a codec that never converts.
func Unavailable(logger *slog.Logger) *Codec {
	return &Codec{name: "unavailable", logger: logger.With(slog.String("component", "codec-capability"))}
}

func candidates(configured string) ([][]string, error) {
	var out [][]string
	if strings.TrimSpace(configured) != "" {
		args, err := shellwords.NewParser().Parse(configured)
		if err != nil {
			return nil, fmt.Errorf("parse ffmpeg path: %w", err)
		}
		if len(args) > 0 {
			out = append(out, args)
		}
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		out = append(out, []string{path})
	}
	for _, path := range fallbackPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, []string{path})
		}
	}
	return out, nil
}

func runVersion(ctx context.Context, argv []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	args := append(append([]string{}, argv[1:]...), "-version")
	out, err := exec.CommandContext(ctx, argv[0], args...).Output()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

func (c *Codec) Name() string {
	return c.name
}

func (c *Codec) Available() bool {
	return c != nil && c.path != ""
}

func (c *Codec) Version() string {
	return c.version
}

// Encode pipes data through ffmpeg, converting from one container to another.
func (c *Codec) Encode(ctx context.Context, data []byte, from, to audio.Format) ([]byte, error) {
	if !c.Available() {
		return nil, ErrCodecUnavailable
	}
	args := append(append([]string{}, c.prefix...), encodeArgs(from, to, c.bitrate)...)
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return nil, fmt.Errorf("ffmpeg %s to %s: %w: %s", from, to, err, msg)
	}
	return stdout.Bytes(), nil
}

func encodeArgs(from, to audio.Format, bitrate string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", string(from), "-i", "pipe:0"}
	switch to {
	case audio.FormatMP3:
		args = append(args, "-codec:a", "libmp3lame", "-b:a", bitrate, "-q:a", "2")
	case audio.FormatWAV:
		args = append(args, "-codec:a", "pcm_s16le")
	}
	return append(args, "-f", string(to), "pipe:1")
}

func (c *Codec) initMetrics(meter metric.Meter) error {
	if meter == nil {
		return nil
	}
	gauge, err := meter.Int64ObservableGauge("podcast.codec.available", metric.WithDescription("1 when an audio codec binary is usable"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		var v int64
		if c.Available() {
			v = 1
		}
		obs.ObserveInt64(gauge, v, metric.WithAttributes(attribute.String("codec", c.name)))
		return nil
	}, gauge)
	return err
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
