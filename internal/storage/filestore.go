package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

// maxCollisions bounds the _N suffix search for a free filename.
const maxCollisions = 1000

var ErrEmptyAudio = errors.New("refusing to store empty audio")

// Stored describes a persisted audio file.
type Stored struct {
	Name   string       `json:"name"`
	Path   string       `json:"path"`
	Ref    string       `json:"ref"`
	Format audio.Format `json:"format"`
	Bytes  int          `json:"bytes"`
}

// FileStore persists final audio under a flat directory.
type FileStore struct {
	dir          string
	publicPrefix string
	now          func() time.Time
	logger       *slog.Logger
}

func NewFileStore(cfg config.StorageConfig, logger *slog.Logger) *FileStore {
	return &FileStore{
		dir:          cfg.AudioDir,
		publicPrefix: strings.TrimRight(cfg.PublicPrefix, "/"),
		now:          time.Now,
		logger:       logger.With(slog.String("component", "file-store")),
	}
}

// WithClock overrides the clock used for filenames.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Save writes seg under a timestamped name whose extension follows the
// segment's real format. Existing files are never overwritten; a numeric
// suffix is appended instead.
func (s *FileStore) Save(lang script.Language, seg audio.Segment) (Stored, error) {
	if seg.Empty() {
		return Stored{}, ErrEmptyAudio
	}
	if _, err := audio.ParseFormat(string(seg.Format)); err != nil {
		return Stored{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("create audio dir: %w", err)
	}
	base := fmt.Sprintf("podcast_%s_%s", lang, s.now().Format("20060102_150405"))
	f, name, err := createUnique(s.dir, base, "."+seg.Format.Ext())
	if err != nil {
		return Stored{}, err
	}
	full := filepath.Join(s.dir, name)
	if err := writeAndClose(f, seg.Data); err != nil {
		_ = os.Remove(full)
		return Stored{}, fmt.Errorf("write audio file: %w", err)
	}
	stored := Stored{
		Name:   name,
		Path:   full,
		Ref:    path.Join(s.publicPrefix, name),
		Format: seg.Format,
		Bytes:  seg.Len(),
	}
	if s.publicPrefix == "" {
		stored.Ref = name
	}
	s.logger.Info("stored audio",
		slog.String("language", string(lang)),
		slog.String("path", full),
		slog.String("size", humanize.Bytes(uint64(stored.Bytes))))
	return stored, nil
}

// createUnique opens base+ext exclusively, falling back to base_N+ext.
func createUnique(dir, base, ext string) (*os.File, string, error) {
	for i := 0; i < maxCollisions; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("no free filename for %s%s after %d attempts", base, ext, maxCollisions)
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_-]+`)

// SanitizeName reduces s to letters, digits, dashes and underscores.
func SanitizeName(s string) string {
	s = unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "podcast"
	}
	if r := []rune(s); len(r) > 80 {
		s = string(r[:80])
	}
	return s
}
