package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/loqalabs/loqa-podcast/internal/config"
)

// AuditWriter dumps raw generation output for later inspection. Writes run
// in the background and failures are only logged.
type AuditWriter struct {
	dir      string
	compress bool
	level    zstd.EncoderLevel
	now      func() time.Time
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewAuditWriter(cfg config.StorageConfig, logger *slog.Logger) *AuditWriter {
	return &AuditWriter{
		dir:      cfg.RawDataDir,
		compress: cfg.CompressAudit,
		level:    zstd.EncoderLevelFromZstd(cfg.CompressionLevel),
		now:      time.Now,
		logger:   logger.With(slog.String("component", "audit-writer")),
	}
}

// WithClock overrides the clock used for filenames.
func (a *AuditWriter) WithClock(now func() time.Time) *AuditWriter {
	if now != nil {
		a.now = now
	}
	return a
}

// Record schedules payload to be written as raw_<name>_<date>_<HHMMSS>.json,
// where date is the generation date and defaults to today. It never blocks
// the caller.
func (a *AuditWriter) Record(name, date string, payload any) {
	ts := a.now()
	if date == "" {
		date = ts.Format("2006-01-02")
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		path, err := a.write(name, date, ts, payload)
		if err != nil {
			a.logger.Warn("audit dump failed", slog.String("name", name), slogError(err))
			return
		}
		a.logger.Debug("audit dump written", slog.String("path", path))
	}()
}

// Wait blocks until all scheduled dumps have finished.
func (a *AuditWriter) Wait() {
	a.wg.Wait()
}

func (a *AuditWriter) write(name, date string, ts time.Time, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	ext := ".json"
	if a.compress {
		data, err = a.compressBytes(data)
		if err != nil {
			return "", err
		}
		ext = ".json.zst"
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw data dir: %w", err)
	}
	base := fmt.Sprintf("raw_%s_%s_%s", SanitizeName(name), SanitizeName(date), ts.Format("150405"))
	f, file, err := createUnique(a.dir, base, ext)
	if err != nil {
		return "", err
	}
	full := filepath.Join(a.dir, file)
	if err := writeAndClose(f, data); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write audit dump: %w", err)
	}
	a.logger.Debug("audit payload size", slog.String("size", humanize.Bytes(uint64(len(data)))))
	return full, nil
}

func (a *AuditWriter) compressBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(a.level))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress audit payload: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize zstd stream: %w", err)
	}
	return buf.Bytes(), nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
