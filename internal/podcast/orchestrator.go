package podcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/eventstore"
	"github.com/loqalabs/loqa-podcast/internal/llm"
	"github.com/loqalabs/loqa-podcast/internal/protocol"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"github.com/loqalabs/loqa-podcast/internal/tts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/loqalabs/loqa-podcast/podcast"

// ScriptSource produces the bilingual scripts for one briefing.
type ScriptSource interface {
	Generate(ctx context.Context, date, attribution string) (llm.Generation, error)
}

// Auditor keeps a raw copy of what the script source returned.
type Auditor interface {
	Record(name, date string, payload any)
}

// Timeline stores stage transitions of each request.
type Timeline interface {
	BeginGeneration(ctx context.Context, requestID, name, selector string) error
	FinishGeneration(ctx context.Context, requestID, status string) error
	RecordStage(ctx context.Context, evt eventstore.StageEvent) error
}

// Publisher broadcasts pipeline events.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Deps are the collaborators of an Orchestrator. Audit, Timeline and
// Publisher are optional.
type Deps struct {
	Scripts    ScriptSource
	Synth      tts.Synthesizer
	Combiner   *audio.Combiner
	Transcoder *audio.Transcoder
	Store      AudioStore
	Audit      Auditor
	Timeline   Timeline
	Publisher  Publisher
}

// Orchestrator drives one request through script generation, chunking,
// validation, synthesis, combination, transcoding and storage.
type Orchestrator struct {
	cfg      config.Config
	deps     Deps
	renderer *renderer
	now      func() time.Time
	logger   *slog.Logger

	tracer      trace.Tracer
	generations metric.Int64Counter
	chunks      metric.Int64Counter
	latency     metric.Float64Histogram
}

func NewOrchestrator(cfg config.Config, deps Deps, logger *slog.Logger) (*Orchestrator, error) {
	if deps.Scripts == nil || deps.Synth == nil || deps.Store == nil {
		return nil, errors.New("orchestrator requires a script source, a synthesizer and a store")
	}
	format, err := audio.ParseFormat(cfg.Synthesis.OutputFormat)
	if err != nil {
		return nil, err
	}
	log := logger.With(slog.String("component", "orchestrator"))
	if deps.Combiner == nil {
		deps.Combiner = audio.NewCombiner(logger)
	}
	if deps.Transcoder == nil {
		deps.Transcoder = audio.NewTranscoder(nil, logger)
	}

	o := &Orchestrator{
		cfg:  cfg,
		deps: deps,
		renderer: &renderer{
			synth:       deps.Synth,
			combiner:    deps.Combiner,
			transcoder:  deps.Transcoder,
			store:       deps.Store,
			format:      format,
			concurrency: cfg.Synthesis.Concurrency,
			logger:      log,
		},
		now:    time.Now,
		logger: log,
		tracer: otel.Tracer(instrumentationName),
	}
	if err := o.initMetrics(otel.Meter(instrumentationName)); err != nil {
		log.Warn("failed to initialize metrics", slogError(err))
		_ = o.initMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return o, nil
}

// WithClock overrides the clock used for the generation date and timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
	}
	return o
}

func (o *Orchestrator) initMetrics(meter metric.Meter) error {
	var err error
	if o.generations, err = meter.Int64Counter("podcast.generations",
		metric.WithDescription("Completed generation requests by status")); err != nil {
		return err
	}
	if o.chunks, err = meter.Int64Counter("podcast.chunks.synthesized",
		metric.WithDescription("Chunks sent to the synthesis backend")); err != nil {
		return err
	}
	o.latency, err = meter.Float64Histogram("podcast.generation.duration",
		metric.WithDescription("End to end generation time"), metric.WithUnit("s"))
	return err
}

// run carries the state of one request through the stages.
type run struct {
	id       string
	name     string
	selector Selector
	date     string
	stage    Stage

	gen     llm.Generation
	sets    map[script.Language]script.ChunkSet
	files   []GenerationResult
	speaker map[script.Language]string
}

// Generate runs the full pipeline. It never returns an error: failures are
// reported in the Result, whose Kind tells input, upstream and internal
// failures apart.
func (o *Orchestrator) Generate(ctx context.Context, req Request) Result {
	start := o.now()
	r := &run{
		id:    strings.TrimSpace(req.RequestID),
		name:  strings.TrimSpace(req.Name),
		date:  start.AddDate(0, 0, -1).Format("2006-01-02"),
		stage: StageStart,
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if r.name == "" {
		r.name = llm.DefaultAttribution
	}

	ctx, span := o.tracer.Start(ctx, "podcast.generate", trace.WithAttributes(
		attribute.String("podcast.request_id", r.id),
		attribute.String("podcast.language", req.Language),
	))
	defer span.End()

	if o.deps.Timeline != nil {
		if err := o.deps.Timeline.BeginGeneration(ctx, r.id, r.name, req.Language); err != nil {
			o.logger.Warn("failed to record generation", slogError(err))
		}
	}
	o.transition(ctx, r, StageStart, "", nil)

	err := o.execute(ctx, r, req)

	var res Result
	status := StatusSuccess
	if err != nil {
		status = StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.transition(ctx, r, StageError, errLanguage(err), err)
		res = o.errorResult(r, req, err)
		o.logger.Error("generation failed",
			slog.String("request_id", r.id),
			slog.String("kind", string(KindOf(err))),
			slogError(err))
	} else {
		o.transition(ctx, r, StageResultCompiled, "", nil)
		res = o.successResult(r)
		o.logger.Info("generation completed",
			slog.String("request_id", r.id),
			slog.Int("files", len(r.files)),
			slog.Duration("elapsed", o.now().Sub(start)))
	}

	attrs := metric.WithAttributes(attribute.String("status", status), attribute.String("language", string(r.selector)))
	o.generations.Add(ctx, 1, attrs)
	o.latency.Record(ctx, o.now().Sub(start).Seconds(), attrs)

	if o.deps.Timeline != nil {
		if err := o.deps.Timeline.FinishGeneration(ctx, r.id, status); err != nil {
			o.logger.Warn("failed to finish generation", slogError(err))
		}
	}
	o.publishOutcome(r, res)
	return res
}

// execute walks the state machine, turning panics into internal errors.
func (o *Orchestrator) execute(ctx context.Context, r *run, req Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("pipeline panic", slog.String("request_id", r.id), slog.Any("panic", p))
			err = &Error{Kind: KindInternal, Stage: r.stage, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	sel, err := ParseSelector(req.Language)
	if err != nil {
		return &Error{Kind: KindInput, Stage: StageStart, Err: err}
	}
	r.selector = sel

	gen, err := o.deps.Scripts.Generate(ctx, r.date, r.name)
	if err != nil {
		kind := classify(err)
		if kind == KindInternal {
			kind = KindUpstream
		}
		return &Error{Kind: kind, Stage: StageStart, Err: err}
	}
	if strings.TrimSpace(gen.Scripts.English) == "" || strings.TrimSpace(gen.Scripts.Hindi) == "" {
		return &Error{Kind: KindInput, Stage: StageStart, Err: ErrMissingScripts}
	}
	r.gen = gen
	if o.deps.Audit != nil {
		o.deps.Audit.Record(r.name, r.date, gen)
	}
	o.transition(ctx, r, StageScriptsReady, "", nil)

	sets, err := script.SplitAll(map[script.Language]string{
		script.English: gen.Scripts.English,
		script.Hindi:   gen.Scripts.Hindi,
	}, o.cfg.Chunking.MaxChars)
	if err != nil {
		return newError(StageScriptsReady, "", err)
	}
	if err := script.Validate(o.cfg.Chunking.BackendLimit, sets[script.English], sets[script.Hindi]); err != nil {
		var ve *script.ValidationError
		lang := script.Language("")
		if errors.As(err, &ve) {
			lang = ve.Language
		}
		return &Error{Kind: KindInput, Stage: StageScriptsReady, Language: lang, Err: err}
	}
	r.sets = sets
	o.transition(ctx, r, StageChunked, "", nil)

	r.speaker = make(map[script.Language]string)
	for _, lang := range sel.Languages() {
		if err := ctx.Err(); err != nil {
			return &Error{Kind: KindInternal, Stage: StageChunked, Language: lang, Err: err}
		}
		voice := tts.VoiceFromConfig(o.cfg, lang, strings.TrimSpace(req.VoiceAgent))
		ctxLang, span := o.tracer.Start(ctx, "podcast.render", trace.WithAttributes(
			attribute.String("podcast.language", string(lang)),
			attribute.Int("podcast.chunks", sets[lang].Count),
		))
		file, err := o.renderer.render(ctxLang, sets[lang], voice)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return err
		}
		span.End()
		o.chunks.Add(ctx, int64(sets[lang].Count), metric.WithAttributes(attribute.String("language", string(lang))))
		r.files = append(r.files, file)
		r.speaker[lang] = voice.Speaker
	}
	o.transition(ctx, r, StageSynthesized, "", nil)
	return nil
}

// transition moves the run to stage and reports it to the timeline and bus.
func (o *Orchestrator) transition(ctx context.Context, r *run, stage Stage, lang script.Language, cause error) {
	if stage != StageError {
		r.stage = stage
	}
	status := "ok"
	msg := ""
	if cause != nil {
		status = "error"
		msg = cause.Error()
	}
	o.logger.Debug("stage transition",
		slog.String("request_id", r.id),
		slog.String("stage", string(stage)))
	trace.SpanFromContext(ctx).AddEvent(string(stage))

	evt := protocol.StageTransition{
		RequestID: r.id,
		Stage:     string(stage),
		Language:  string(lang),
		Status:    status,
		Error:     msg,
		Timestamp: o.now().UTC(),
	}
	if o.deps.Timeline != nil {
		payload, _ := json.Marshal(evt)
		err := o.deps.Timeline.RecordStage(ctx, eventstore.StageEvent{
			RequestID: r.id,
			Stage:     string(stage),
			Language:  string(lang),
			Status:    status,
			Payload:   payload,
			CreatedAt: evt.Timestamp,
		})
		if err != nil {
			o.logger.Warn("failed to record stage", slog.String("stage", string(stage)), slogError(err))
		}
	}
	if o.deps.Publisher != nil {
		if err := o.deps.Publisher.PublishJSON(protocol.StageSubject(string(stage)), evt); err != nil {
			o.logger.Warn("failed to publish stage", slog.String("stage", string(stage)), slogError(err))
		}
	}
}

func (o *Orchestrator) publishOutcome(r *run, res Result) {
	if o.deps.Publisher == nil {
		return
	}
	outcome := protocol.GenerationOutcome{
		RequestID: r.id,
		Name:      r.name,
		Language:  res.Language,
		Status:    res.Status,
		Timestamp: o.now().UTC(),
	}
	subject := protocol.SubjectGenerateCompleted
	if res.OK() {
		outcome.Audio = make(map[string]string, len(res.Files))
		for _, f := range res.Files {
			outcome.Audio[string(f.Language)] = f.Ref
		}
	} else {
		subject = protocol.SubjectGenerateFailed
		if res.Error != nil {
			outcome.Error = *res.Error
		}
	}
	if err := o.deps.Publisher.PublishJSON(subject, outcome); err != nil {
		o.logger.Warn("failed to publish outcome", slogError(err))
	}
}

func (o *Orchestrator) successResult(r *run) Result {
	en, hi := r.gen.Scripts.English, r.gen.Scripts.Hindi
	enLen, hiLen := utf8.RuneCountInString(en), utf8.RuneCountInString(hi)
	enSet, hiSet := r.sets[script.English], r.sets[script.Hindi]

	res := Result{
		Status:      StatusSuccess,
		RequestID:   r.id,
		Date:        r.date,
		Name:        r.name,
		Attribution: ptr(r.gen.Attribution),
		Language:    string(r.selector),
		Scripts:     ScriptPair{English: &en, Hindi: &hi},
		ScriptLengths: &ScriptLengths{
			English: enLen,
			Hindi:   hiLen,
			Total:   enLen + hiLen,
		},
		Files:    r.files,
		Speakers: make(map[string]string, len(r.speaker)),
		Chunks: &ChunkCounts{
			English: enSet.Count,
			Hindi:   hiSet.Count,
			Total:   enSet.Count + hiSet.Count,
		},
		Timestamp: o.now().Format(time.RFC3339),
	}
	for _, f := range r.files {
		res.Audio.set(f.Language, f.Ref)
	}
	for lang, speaker := range r.speaker {
		res.Speakers[string(lang)] = speaker
	}
	res.Speaker = ptr(compatSpeaker(r.selector, r.speaker))
	return res
}

func (o *Orchestrator) errorResult(r *run, req Request, err error) Result {
	lang := string(r.selector)
	if lang == "" {
		lang = req.Language
	}
	return Result{
		Status:    StatusError,
		RequestID: r.id,
		Date:      r.date,
		Name:      r.name,
		Language:  lang,
		Error:     ptr(err.Error()),
		Timestamp: o.now().Format(time.RFC3339),
		kind:      KindOf(err),
	}
}

// compatSpeaker is the single speaker field older clients read: the English
// voice unless only Hindi was requested.
func compatSpeaker(sel Selector, speakers map[script.Language]string) string {
	if sel == SelectHindi {
		return speakers[script.Hindi]
	}
	return speakers[script.English]
}

func errLanguage(err error) script.Language {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Language
	}
	return ""
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
