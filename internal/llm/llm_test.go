package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-podcast/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticGenerator struct {
	content string
	err     error
	last    Request
}

func (g *staticGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	g.last = req
	if g.err != nil {
		return g.err
	}
	return consumer(Chunk{Content: g.content})
}

func TestSplitScripts(t *testing.T) {
	resp := "preamble\n" + EnglishMarker + "\nEnglish body.\nIMPORTANT: do not read this\n\n" + HindiMarker + "\nहिंदी पाठ।\n"
	got, err := SplitScripts(resp)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got.English != "English body." || got.Hindi != "हिंदी पाठ।" {
		t.Fatalf("unexpected scripts %+v", got)
	}
}

func TestSplitScriptsErrors(t *testing.T) {
	if _, err := SplitScripts("no markers at all"); !errors.Is(err, ErrMarkersMissing) {
		t.Fatalf("expected ErrMarkersMissing, got %v", err)
	}
	if _, err := SplitScripts(HindiMarker + "x" + EnglishMarker + "y"); !errors.Is(err, ErrMarkersMissing) {
		t.Fatalf("expected reversed markers to fail, got %v", err)
	}
	if _, err := SplitScripts(EnglishMarker + "  " + HindiMarker + "text"); !errors.Is(err, ErrEmptySection) {
		t.Fatalf("expected ErrEmptySection, got %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("2025-03-13", "Acme Research")
	for _, want := range []string{"2025-03-13", "created by Acme Research", EnglishMarker, HindiMarker} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.Contains(BuildPrompt("", ""), DefaultAttribution) {
		t.Fatalf("expected default attribution")
	}
}

func TestAgentWithMockGenerator(t *testing.T) {
	cfg := config.Default().Generator
	agent := NewAgent(NewMockGenerator(), cfg, newLogger())
	gen, err := agent.Generate(context.Background(), "2025-03-13", "Acme Research")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(gen.Scripts.English, "This podcast is created by Acme Research") {
		t.Fatalf("unexpected english script %q", gen.Scripts.English[:60])
	}
	if !strings.Contains(gen.Scripts.Hindi, "Acme Research") {
		t.Fatalf("hindi script missing attribution")
	}
	if gen.Date != "2025-03-13" || gen.Raw == "" {
		t.Fatalf("unexpected generation metadata %+v", gen)
	}
}

func TestAgentCleansAndEnforcesMinimum(t *testing.T) {
	cfg := config.Default().Generator
	cfg.MinScriptChars = 10
	g := &staticGenerator{content: EnglishMarker + "\n**Bold** market update today.\n" + HindiMarker + "\n# शीर्षक\nबाजार आज ऊपर बंद हुआ।"}
	gen, err := NewAgent(g, cfg, newLogger()).Generate(context.Background(), "today", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.Scripts.English != "Bold market update today." {
		t.Fatalf("markdown not cleaned: %q", gen.Scripts.English)
	}
	if gen.Attribution != DefaultAttribution || g.last.System == "" || g.last.Model != cfg.Model {
		t.Fatalf("request defaults not applied: %+v", g.last)
	}

	cfg.MinScriptChars = 300
	if _, err := NewAgent(g, cfg, newLogger()).Generate(context.Background(), "today", ""); !errors.Is(err, ErrScriptTooShort) {
		t.Fatalf("expected ErrScriptTooShort, got %v", err)
	}
}

func TestAgentGeneratorFailure(t *testing.T) {
	g := &staticGenerator{err: fmt.Errorf("model offline")}
	if _, err := NewAgent(g, config.Default().Generator, newLogger()).Generate(context.Background(), "today", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOllamaGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != "llama3.2:latest" || !req.Stream {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte("{\"response\":\"Hello \",\"done\":false}\n{\"response\":\"world\",\"done\":true,\"eval_count\":2}\n"))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL+"/", "llama3.2:latest", srv.Client())
	out, err := Collect(context.Background(), g, Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if out != "Hello world" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecGenerator(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "gen.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\ncat >/dev/null\necho '{\"content\":\"scripted\"}'\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	g, err := NewExecGenerator(path)
	if err != nil {
		t.Fatalf("new exec generator: %v", err)
	}
	out, err := Collect(context.Background(), g, Request{Prompt: "x"})
	if err != nil || out != "scripted" {
		t.Fatalf("unexpected output %q (%v)", out, err)
	}

	failing := filepath.Join(t.TempDir(), "fail.sh")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho quota exceeded >&2\nexit 2\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	g, err = NewExecGenerator(failing)
	if err != nil {
		t.Fatalf("new exec generator: %v", err)
	}
	if _, err := Collect(context.Background(), g, Request{Prompt: "x"}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestOllamaGeneratorEmptyAndFailedResponses(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"response\":\"\",\"done\":true}\n"))
	}))
	defer empty.Close()
	g := NewOllamaGenerator(empty.URL, "", empty.Client())
	if _, err := Collect(context.Background(), g, Request{Prompt: "hi"}); !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer missing.Close()
	g = NewOllamaGenerator(missing.URL, "", missing.Client())
	if _, err := Collect(context.Background(), g, Request{Prompt: "hi"}); err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Generator
	for _, mode := range []string{"mock", "ollama"} {
		cfg.Mode = mode
		if _, err := NewFromConfig(cfg, nil); err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
	}
	cfg.Mode = "oracle"
	if _, err := NewFromConfig(cfg, nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
