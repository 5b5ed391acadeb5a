package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

var ErrScriptTooShort = errors.New("generated script too short")

// Generation is the outcome of one script generation run.
type Generation struct {
	Scripts     Scripts       `json:"scripts"`
	Raw         string        `json:"raw"`
	Date        string        `json:"date"`
	Attribution string        `json:"attribution"`
	Latency     time.Duration `json:"latency"`
}

// Agent turns a generator into a source of cleaned bilingual podcast
// scripts.
type Agent struct {
	gen      Generator
	defaults Request
	timeout  time.Duration
	minChars int
	logger   *slog.Logger
}

func NewAgent(gen Generator, cfg config.GeneratorConfig, logger *slog.Logger) *Agent {
	return &Agent{
		gen:      gen,
		defaults: RequestFromConfig(cfg),
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		minChars: cfg.MinScriptChars,
		logger:   logger.With(slog.String("component", "script-agent")),
	}
}

// Generate asks the model for the briefing of date and returns both scripts,
// cleaned of markdown and checked against the minimum length.
func (a *Agent) Generate(ctx context.Context, date, attribution string) (Generation, error) {
	if attribution == "" {
		attribution = DefaultAttribution
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := a.defaults
	req.Prompt = BuildPrompt(date, attribution)
	req.System = SystemPrompt()

	start := time.Now()
	raw, err := Collect(ctx, a.gen, req)
	if err != nil {
		return Generation{}, fmt.Errorf("generate scripts: %w", err)
	}
	scripts, err := SplitScripts(raw)
	if err != nil {
		return Generation{}, err
	}
	scripts.English = script.Clean(scripts.English)
	scripts.Hindi = script.Clean(scripts.Hindi)
	for _, s := range []struct {
		lang string
		text string
	}{{"en", scripts.English}, {"hi", scripts.Hindi}} {
		if n := utf8.RuneCountInString(s.text); n < a.minChars {
			return Generation{}, fmt.Errorf("%w: %s script has %d chars, need %d", ErrScriptTooShort, s.lang, n, a.minChars)
		}
	}

	gen := Generation{
		Scripts:     scripts,
		Raw:         raw,
		Date:        date,
		Attribution: attribution,
		Latency:     time.Since(start),
	}
	a.logger.Info("scripts generated",
		slog.Int("english_chars", utf8.RuneCountInString(scripts.English)),
		slog.Int("hindi_chars", utf8.RuneCountInString(scripts.Hindi)),
		slog.Duration("latency", gen.Latency))
	return gen, nil
}
