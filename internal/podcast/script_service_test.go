package podcast

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"github.com/loqalabs/loqa-podcast/internal/storage"
	"github.com/loqalabs/loqa-podcast/internal/tts"
)

type fakeTranslator struct {
	out   string
	ok    bool
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, text string, source, target script.Language) (string, bool) {
	f.calls++
	if !f.ok {
		return text, false
	}
	return f.out, true
}

func newScriptService(t *testing.T, h *harness, tr Translator) *ScriptService {
	t.Helper()
	writer := storage.NewScriptWriter(h.cfg.Storage, newLogger()).WithClock(fixedClock)
	svc, err := NewScriptService(h.cfg, h.deps, tr, writer, newLogger())
	if err != nil {
		t.Fatalf("new script service: %v", err)
	}
	return svc.WithClock(fixedClock)
}

func TestScriptServiceTranslatesToHindi(t *testing.T) {
	h := newHarness(t, true)
	tr := &fakeTranslator{out: hindiScript, ok: true}
	res, err := newScriptService(t, h, tr).Generate(context.Background(), ScriptRequest{
		Script: englishScript,
		Topic:  "Daily Wrap",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !res.Success || !res.Translated || res.Language != "hi" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Format != audio.FormatMP3 || !strings.HasSuffix(res.AudioPath, ".mp3") {
		t.Fatalf("expected mp3 output, got %s %s", res.Format, res.AudioPath)
	}
	if filepath.Base(res.ScriptPath) != "Daily_Wrap_20250314_092653.txt" {
		t.Fatalf("unexpected script path %s", res.ScriptPath)
	}
	saved, err := os.ReadFile(res.ScriptPath)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if string(saved) != hindiScript {
		t.Fatalf("saved script should be the translation")
	}
	for _, req := range h.synth.calls {
		if req.Language != script.Hindi || req.Speaker != "anushka" {
			t.Fatalf("unexpected synthesis request %+v", req)
		}
	}
}

func TestScriptServiceTranslationFailureKeepsText(t *testing.T) {
	h := newHarness(t, false)
	tr := &fakeTranslator{ok: false}
	res, err := newScriptService(t, h, tr).Generate(context.Background(), ScriptRequest{Script: englishScript})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Translated || res.ScriptLength != 63 {
		t.Fatalf("expected untranslated 63 char script, got %+v", res)
	}
	if res.Format != audio.FormatWAV {
		t.Fatalf("expected wav without a codec, got %s", res.Format)
	}
	if !strings.HasPrefix(filepath.Base(res.ScriptPath), "podcast_") {
		t.Fatalf("expected default topic, got %s", res.ScriptPath)
	}
}

func TestScriptServiceEnglishSkipsTranslation(t *testing.T) {
	h := newHarness(t, true)
	tr := &fakeTranslator{out: hindiScript, ok: true}
	res, err := newScriptService(t, h, tr).Generate(context.Background(), ScriptRequest{
		Script:       englishScript,
		Language:     "en",
		OutputFormat: "wav",
		Speaker:      "meera",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if tr.calls != 0 || res.Translated {
		t.Fatalf("english requests must not be translated")
	}
	if res.Format != audio.FormatWAV || res.Chunks != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.synth.calls[0].Speaker != "meera" {
		t.Fatalf("speaker not applied")
	}
}

func TestScriptServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		req  ScriptRequest
		kind Kind
	}{
		{"empty script", ScriptRequest{Script: "  "}, KindInput},
		{"bad language", ScriptRequest{Script: englishScript, Language: "fr"}, KindInput},
		{"bad format", ScriptRequest{Script: englishScript, Language: "en", OutputFormat: "ogg"}, KindInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, true)
			res, err := newScriptService(t, h, nil).Generate(context.Background(), tc.req)
			if err == nil || KindOf(err) != tc.kind {
				t.Fatalf("expected %s error, got %v", tc.kind, err)
			}
			if res.Success || res.Error == nil {
				t.Fatalf("expected failed result, got %+v", res)
			}
		})
	}

	h := newHarness(t, true)
	h.synth.fail[script.English] = &tts.BackendError{Status: 429, Body: "slow down"}
	_, err := newScriptService(t, h, nil).Generate(context.Background(), ScriptRequest{Script: englishScript, Language: "en"})
	if KindOf(err) != KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
