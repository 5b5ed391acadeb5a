package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/config"
)

// ScriptWriter saves generated script text next to the audit dumps.
type ScriptWriter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewScriptWriter(cfg config.StorageConfig, logger *slog.Logger) *ScriptWriter {
	return &ScriptWriter{
		dir:    cfg.RawDataDir,
		now:    time.Now,
		logger: logger.With(slog.String("component", "script-writer")),
	}
}

func (w *ScriptWriter) WithClock(now func() time.Time) *ScriptWriter {
	if now != nil {
		w.now = now
	}
	return w
}

// Save writes text to <topic>_<timestamp>.txt and returns the file path.
func (w *ScriptWriter) Save(topic, text string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	base := fmt.Sprintf("%s_%s", SanitizeName(topic), w.now().Format("20060102_150405"))
	f, name, err := createUnique(w.dir, base, ".txt")
	if err != nil {
		return "", err
	}
	full := filepath.Join(w.dir, name)
	if err := writeAndClose(f, []byte(text)); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("write script: %w", err)
	}
	w.logger.Info("saved script", slog.String("path", full))
	return full, nil
}
