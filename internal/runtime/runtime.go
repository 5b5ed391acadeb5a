package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/bus"
	"github.com/loqalabs/loqa-podcast/internal/capability"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/eventstore"
	"github.com/loqalabs/loqa-podcast/internal/llm"
	"github.com/loqalabs/loqa-podcast/internal/natsserver"
	"github.com/loqalabs/loqa-podcast/internal/podcast"
	"github.com/loqalabs/loqa-podcast/internal/storage"
	"github.com/loqalabs/loqa-podcast/internal/translate"
	"github.com/loqalabs/loqa-podcast/internal/tts"
)

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	httpServer *http.Server
	metricsSrv *http.Server
	telemetry  *telemetry
	ready      atomic.Bool
	wg         sync.WaitGroup

	codec        *capability.Codec
	events       *eventstore.Store
	nats         *natsserver.EmbeddedServer
	bus          *bus.Client
	busService   *podcast.BusService
	audit        *storage.AuditWriter
	orchestrator *podcast.Orchestrator
	scripts      *podcast.ScriptService
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := setupTelemetry(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetry = tel

	if err := r.wire(ctx); err != nil {
		r.shutdown()
		return err
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r.routes(tel.metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.serve(r.httpServer, "http")

	if bind := r.cfg.Telemetry.PrometheusBind; bind != "" && tel.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", tel.metrics)
		r.metricsSrv = &http.Server{Addr: bind, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		r.serve(r.metricsSrv, "metrics")
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr), slog.Bool("codec", r.codec.Available()))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)
	r.shutdown()
	return nil
}

func (r *Runtime) serve(srv *http.Server, name string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error(name+" server failed", slog.String("error", err.Error()))
		}
	}()
}

// wire builds every pipeline component from configuration.
func (r *Runtime) wire(ctx context.Context) error {
	client := &http.Client{}

	events, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	r.events = events

	if r.cfg.Bus.Enabled {
		r.nats, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return err
		}
		var servers []string
		if url := r.nats.ClientURL(); url != "" {
			servers = append(servers, url)
		}
		r.bus, err = bus.Connect(ctx, r.cfg.Bus, r.logger, servers...)
		if err != nil {
			return err
		}
	}

	r.codec = capability.Probe(ctx, r.cfg.Codec, r.logger)

	synth, err := tts.NewFromConfig(r.cfg.Synthesis, client)
	if err != nil {
		return fmt.Errorf("init synthesizer: %w", err)
	}
	gen, err := llm.NewFromConfig(r.cfg.Generator, client)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}

	r.audit = storage.NewAuditWriter(r.cfg.Storage, r.logger)
	deps := podcast.Deps{
		Scripts:    llm.NewAgent(gen, r.cfg.Generator, r.logger),
		Synth:      synth,
		Combiner:   audio.NewCombiner(r.logger),
		Transcoder: audio.NewTranscoder(r.codec, r.logger),
		Store:      storage.NewFileStore(r.cfg.Storage, r.logger),
		Audit:      r.audit,
		Timeline:   r.events,
	}
	if r.bus != nil {
		deps.Publisher = r.bus
	}

	r.orchestrator, err = podcast.NewOrchestrator(r.cfg, deps, r.logger)
	if err != nil {
		return err
	}
	r.scripts, err = podcast.NewScriptService(r.cfg, deps,
		translate.NewClient(r.cfg.Translation, client, r.logger),
		storage.NewScriptWriter(r.cfg.Storage, r.logger),
		r.logger)
	if err != nil {
		return err
	}

	if r.bus != nil {
		timeout := time.Duration(r.cfg.Generator.TimeoutMS+r.cfg.Synthesis.TimeoutMS*4) * time.Millisecond
		r.busService = podcast.NewBusService(ctx, r.bus, r.orchestrator, timeout, r.logger)
		if err := r.busService.Start(); err != nil {
			return fmt.Errorf("start bus service: %w", err)
		}
	}
	return nil
}

// shutdown stops servers first, then components in reverse wiring order.
func (r *Runtime) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{r.httpServer, r.metricsSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.busService != nil {
		r.busService.Close()
	}
	if r.audit != nil {
		r.audit.Wait()
	}
	r.bus.Close()
	r.nats.Shutdown()
	if r.events != nil {
		if err := r.events.Close(); err != nil {
			r.logger.Error("event store close error", slog.String("error", err.Error()))
		}
	}

	if r.telemetry != nil {
		if err := r.telemetry.shutdown(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && (r.busService == nil || r.busService.Healthy()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
