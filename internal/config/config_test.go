package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chunking.MaxChars != 500 {
		t.Fatalf("expected default max chars 500, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Voices.English != "sachit" || cfg.Voices.Hindi != "anushka" {
		t.Fatalf("unexpected default voices: %+v", cfg.Voices)
	}
	if cfg.EventStore.RetentionMode != "ephemeral" {
		t.Fatalf("expected ephemeral event store by default, got %s", cfg.EventStore.RetentionMode)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podcast.yaml")
	data := []byte(`
http:
  port: 9000
storage:
  audio_dir: /tmp/podcast-audio
synthesis:
  mode: mock
  output_format: wav
  concurrency: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Storage.AudioDir != "/tmp/podcast-audio" {
		t.Fatalf("expected audio dir override, got %s", cfg.Storage.AudioDir)
	}
	if cfg.Synthesis.Mode != "mock" || cfg.Synthesis.Concurrency != 3 {
		t.Fatalf("unexpected synthesis config: %+v", cfg.Synthesis)
	}
	if cfg.HTTP.APIPrefix != "/api/v1" {
		t.Fatalf("expected untouched default api prefix, got %s", cfg.HTTP.APIPrefix)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SARVAM_API_KEY", "sarvam-secret")
	t.Setenv("PODCAST_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("PODCAST_BUS_ENABLED", "true")
	t.Setenv("PODCAST_BUS_EMBEDDED", "false")
	t.Setenv("PODCAST_CHUNKING_MAX_CHARS", "300")
	t.Setenv("PODCAST_SYNTHESIS_PACE", "1.25")
	t.Setenv("PODCAST_VOICE_HI", "manisha")
	t.Setenv("PODCAST_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("PODCAST_EVENT_STORE_RETENTION_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.APIKey != "sarvam-secret" || cfg.Translation.APIKey != "sarvam-secret" {
		t.Fatalf("expected sarvam key on synthesis and translation")
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if !cfg.Bus.Enabled || cfg.Bus.Embedded {
		t.Fatalf("expected external bus enabled")
	}
	if cfg.Chunking.MaxChars != 300 {
		t.Fatalf("expected max chars 300, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Synthesis.Pace != 1.25 {
		t.Fatalf("expected pace 1.25, got %v", cfg.Synthesis.Pace)
	}
	if cfg.Voices.Hindi != "manisha" {
		t.Fatalf("expected hindi voice override")
	}
	if cfg.EventStore.RetentionMode != "persistent" || cfg.EventStore.RetentionDays != 7 {
		t.Fatalf("expected event store overrides")
	}
}

func TestSpecificKeyWinsOverSharedKey(t *testing.T) {
	t.Setenv("SARVAM_API_KEY", "shared")
	t.Setenv("PODCAST_TRANSLATION_API_KEY", "translate-only")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synthesis.APIKey != "shared" {
		t.Fatalf("expected shared synthesis key, got %q", cfg.Synthesis.APIKey)
	}
	if cfg.Translation.APIKey != "translate-only" {
		t.Fatalf("expected translation key override, got %q", cfg.Translation.APIKey)
	}
}

func TestValidateRejectsChunkAboveBackendLimit(t *testing.T) {
	cfg := Default()
	cfg.Chunking.MaxChars = 600
	if err := validate(cfg); err == nil {
		t.Fatal("expected error when max_chars exceeds backend_limit")
	}
}

func TestValidateSynthesisMode(t *testing.T) {
	cfg := Default()
	cfg.Synthesis.Mode = "exec"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for exec mode without command")
	}
	cfg.Synthesis.Mode = "polly"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRedactedMasksCredentials(t *testing.T) {
	cfg := Default()
	cfg.Synthesis.APIKey = "secret"
	cfg.Bus.Token = "tok"
	out := cfg.Redacted()
	if out.Synthesis.APIKey != redacted || out.Bus.Token != redacted {
		t.Fatalf("credentials not masked: %+v", out)
	}
	if out.Translation.APIKey != "" {
		t.Fatalf("empty key should stay empty, got %q", out.Translation.APIKey)
	}
	if cfg.Synthesis.APIKey != "secret" {
		t.Fatal("Redacted must not modify the receiver")
	}
}
