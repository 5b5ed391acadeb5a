package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}

func storageConfig(t *testing.T) config.StorageConfig {
	t.Helper()
	cfg := config.Default().Storage
	cfg.AudioDir = filepath.Join(t.TempDir(), "audio")
	cfg.RawDataDir = filepath.Join(t.TempDir(), "raw")
	return cfg
}

func TestFileStoreSave(t *testing.T) {
	store := NewFileStore(storageConfig(t), newLogger()).WithClock(fixedClock)
	stored, err := store.Save(script.English, audio.Segment{Data: []byte("ID3data"), Format: audio.FormatMP3})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if stored.Name != "podcast_en_20250314_092653.mp3" {
		t.Fatalf("unexpected name %q", stored.Name)
	}
	if stored.Ref != "/audio/podcast_en_20250314_092653.mp3" {
		t.Fatalf("unexpected ref %q", stored.Ref)
	}
	data, err := os.ReadFile(stored.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "ID3data" || stored.Bytes != 7 {
		t.Fatalf("unexpected stored content %q (%d bytes)", data, stored.Bytes)
	}
}

func TestFileStoreExtensionFollowsFormat(t *testing.T) {
	store := NewFileStore(storageConfig(t), newLogger()).WithClock(fixedClock)
	stored, err := store.Save(script.Hindi, audio.Segment{Data: []byte("RIFF"), Format: audio.FormatWAV})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Ext(stored.Path) != ".wav" || stored.Format != audio.FormatWAV {
		t.Fatalf("wav segment stored as %s", stored.Path)
	}
}

func TestFileStoreNeverOverwrites(t *testing.T) {
	store := NewFileStore(storageConfig(t), newLogger()).WithClock(fixedClock)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names = map[string]bool{}
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := store.Save(script.English, audio.Segment{Data: []byte{byte(i + 1)}, Format: audio.FormatWAV})
			if err != nil {
				t.Errorf("save %d: %v", i, err)
				return
			}
			mu.Lock()
			names[stored.Name] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	if len(names) != 5 {
		t.Fatalf("expected 5 distinct files, got %v", names)
	}
	if !names["podcast_en_20250314_092653.wav"] || !names["podcast_en_20250314_092653_1.wav"] {
		t.Fatalf("expected base name and _1 suffix, got %v", names)
	}
}

func TestFileStoreRejectsEmpty(t *testing.T) {
	store := NewFileStore(storageConfig(t), newLogger())
	if _, err := store.Save(script.English, audio.Segment{Format: audio.FormatWAV}); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestAuditWriterPlain(t *testing.T) {
	cfg := storageConfig(t)
	w := NewAuditWriter(cfg, newLogger()).WithClock(fixedClock)
	w.Record("Market Wrap", "2025-03-13", map[string]string{"eng_pod": "hello"})
	w.Wait()

	path := filepath.Join(cfg.RawDataDir, "raw_Market_Wrap_2025-03-13_092653.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil || got["eng_pod"] != "hello" {
		t.Fatalf("unexpected dump %s (%v)", data, err)
	}
}

func TestAuditWriterCompressed(t *testing.T) {
	cfg := storageConfig(t)
	cfg.CompressAudit = true
	w := NewAuditWriter(cfg, newLogger()).WithClock(fixedClock)
	w.Record("daily", "", map[string]int{"chunks": 3})
	w.Wait()

	data, err := os.ReadFile(filepath.Join(cfg.RawDataDir, "raw_daily_2025-03-14_092653.json.zst"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	plain, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(plain), `"chunks": 3`) {
		t.Fatalf("unexpected payload %s", plain)
	}
}

func TestAuditWriterFailureIsSwallowed(t *testing.T) {
	cfg := storageConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg.RawDataDir = filepath.Join(blocker, "nested")
	w := NewAuditWriter(cfg, newLogger())
	w.Record("x", "2025-03-13", map[string]string{})
	w.Wait()
}

func TestScriptWriter(t *testing.T) {
	cfg := storageConfig(t)
	w := NewScriptWriter(cfg, newLogger()).WithClock(fixedClock)
	path, err := w.Save("AI in Finance: 2025!", "script body")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "AI_in_Finance_2025_20250314_092653.txt" {
		t.Fatalf("unexpected name %q", filepath.Base(path))
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  ", "podcast"},
		{"../etc/passwd", "etc_passwd"},
		{"हिंदी पॉडकास्ट", "हिंदी_पॉडकास्ट"},
		{"keep-dash_under", "keep-dash_under"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
