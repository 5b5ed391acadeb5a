package podcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"github.com/loqalabs/loqa-podcast/internal/tts"
)

// Translator renders text in another language, returning the input
// unchanged and false when it cannot.
type Translator interface {
	Translate(ctx context.Context, text string, source, target script.Language) (string, bool)
}

// ScriptSaver keeps a copy of a script on disk.
type ScriptSaver interface {
	Save(topic, text string) (string, error)
}

// ScriptRequest asks for audio of a caller supplied script.
type ScriptRequest struct {
	Script       string `json:"script"`
	Topic        string `json:"topic,omitempty"`
	Language     string `json:"language,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	Translate    *bool  `json:"translate_to_hindi,omitempty"`
	Speaker      string `json:"speaker,omitempty"`
}

// ScriptResult describes the files produced for a ScriptRequest.
type ScriptResult struct {
	ScriptPath   string       `json:"script_path"`
	AudioPath    string       `json:"audio_path"`
	AudioRef     string       `json:"audio_ref"`
	Success      bool         `json:"success"`
	Format       audio.Format `json:"format"`
	Language     string       `json:"language"`
	Translated   bool         `json:"translated"`
	ScriptLength int          `json:"script_length"`
	Chunks       int          `json:"chunks"`
	Error        *string      `json:"error"`
	Timestamp    string       `json:"timestamp"`
}

// ScriptService voices a single script: optional English to Hindi
// translation, a saved copy of the final text, then one audio file.
type ScriptService struct {
	cfg        config.Config
	deps       Deps
	translator Translator
	scripts    ScriptSaver
	now        func() time.Time
	logger     *slog.Logger
}

func NewScriptService(cfg config.Config, deps Deps, translator Translator, scripts ScriptSaver, logger *slog.Logger) (*ScriptService, error) {
	if deps.Synth == nil || deps.Store == nil || scripts == nil {
		return nil, errors.New("script service requires a synthesizer, an audio store and a script saver")
	}
	if deps.Combiner == nil {
		deps.Combiner = audio.NewCombiner(logger)
	}
	if deps.Transcoder == nil {
		deps.Transcoder = audio.NewTranscoder(nil, logger)
	}
	return &ScriptService{
		cfg:        cfg,
		deps:       deps,
		translator: translator,
		scripts:    scripts,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "script-service")),
	}, nil
}

func (s *ScriptService) WithClock(now func() time.Time) *ScriptService {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns the result together with a *Error when anything but the
// translation failed.
func (s *ScriptService) Generate(ctx context.Context, req ScriptRequest) (ScriptResult, error) {
	res := ScriptResult{Language: req.Language}
	fail := func(err error) (ScriptResult, error) {
		res.Error = ptr(err.Error())
		res.Timestamp = s.now().Format(time.RFC3339)
		s.logger.Error("script generation failed", slog.String("kind", string(KindOf(err))), slogError(err))
		return res, err
	}

	text := strings.TrimSpace(req.Script)
	if text == "" {
		return fail(&Error{Kind: KindInput, Stage: StageStart, Err: script.ErrEmptyScript})
	}
	if req.Language == "" {
		req.Language = string(script.Hindi)
	}
	lang, err := script.ParseLanguage(req.Language)
	if err != nil {
		return fail(&Error{Kind: KindInput, Stage: StageStart, Err: err})
	}
	res.Language = string(lang)

	format := audio.Format(s.cfg.Synthesis.OutputFormat)
	if req.OutputFormat != "" {
		if format, err = audio.ParseFormat(req.OutputFormat); err != nil {
			return fail(&Error{Kind: KindInput, Stage: StageStart, Err: err})
		}
	}
	res.Format = format

	translate := lang == script.Hindi
	if req.Translate != nil {
		translate = *req.Translate
	}
	if translate && s.translator != nil {
		if out, ok := s.translator.Translate(ctx, text, script.English, script.Hindi); ok && out != text {
			text = out
			res.Translated = true
		} else {
			s.logger.Warn("translation did not change text")
		}
	}
	res.ScriptLength = utf8.RuneCountInString(text)

	topic := req.Topic
	if strings.TrimSpace(topic) == "" {
		topic = "podcast"
	}
	if res.ScriptPath, err = s.scripts.Save(topic, text); err != nil {
		return fail(&Error{Kind: KindInternal, Stage: StageScriptsReady, Language: lang, Err: fmt.Errorf("save script: %w", err)})
	}

	set, err := script.Split(text, s.cfg.Chunking.MaxChars, lang)
	if err != nil {
		return fail(newError(StageScriptsReady, lang, err))
	}
	if err := script.Validate(s.cfg.Chunking.BackendLimit, set); err != nil {
		return fail(&Error{Kind: KindInput, Stage: StageScriptsReady, Language: lang, Err: err})
	}
	res.Chunks = set.Count

	r := &renderer{
		synth:       s.deps.Synth,
		combiner:    s.deps.Combiner,
		transcoder:  s.deps.Transcoder,
		store:       s.deps.Store,
		format:      format,
		concurrency: s.cfg.Synthesis.Concurrency,
		logger:      s.logger,
	}
	file, err := r.render(ctx, set, tts.VoiceFromConfig(s.cfg, lang, strings.TrimSpace(req.Speaker)))
	if err != nil {
		return fail(err)
	}

	res.AudioPath = file.Path
	res.AudioRef = file.Ref
	res.Format = file.Format
	res.Success = true
	res.Timestamp = s.now().Format(time.RFC3339)
	return res, nil
}
