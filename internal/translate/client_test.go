package translate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(endpoint string) config.TranslationConfig {
	cfg := config.Default().Translation
	cfg.Endpoint = endpoint
	cfg.APIKey = "k"
	return cfg
}

func TestTranslate(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"translated_text":"नमस्ते"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client(), newLogger())
	out, ok := c.Translate(context.Background(), "Hello", script.English, script.Hindi)
	if !ok || out != "नमस्ते" {
		t.Fatalf("unexpected translation %q ok=%v", out, ok)
	}
	if got.SourceLanguageCode != "en-IN" || got.TargetLanguageCode != "hi-IN" || got.Mode != "formal" || got.NumeralsFormat != "native" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestTranslatePassThrough(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer failing.Close()
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer empty.Close()

	noKey := testConfig(failing.URL)
	noKey.APIKey = ""
	disabled := testConfig(failing.URL)
	disabled.Enabled = false

	cases := map[string]*Client{
		"backend error":   NewClient(testConfig(failing.URL), failing.Client(), newLogger()),
		"unexpected body": NewClient(testConfig(empty.URL), empty.Client(), newLogger()),
		"missing key":     NewClient(noKey, nil, newLogger()),
		"disabled":        NewClient(disabled, nil, newLogger()),
	}
	for name, c := range cases {
		out, ok := c.Translate(context.Background(), "Hello", script.English, script.Hindi)
		if ok || out != "Hello" {
			t.Fatalf("%s: expected original text, got %q ok=%v", name, out, ok)
		}
	}

	c := NewClient(testConfig(failing.URL), failing.Client(), newLogger())
	if out, ok := c.Translate(context.Background(), "Hello", script.English, script.English); ok || out != "Hello" {
		t.Fatalf("same-language translate should be a no-op")
	}
}
