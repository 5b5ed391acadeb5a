package podcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/bus"
	"github.com/loqalabs/loqa-podcast/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Generator runs one generation request.
type Generator interface {
	Generate(ctx context.Context, req Request) Result
}

// BusService serves generation requests arriving on the message bus and
// replies with the Result payload.
type BusService struct {
	bus     *bus.Client
	gen     Generator
	timeout time.Duration
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func NewBusService(parent context.Context, busClient *bus.Client, gen Generator, timeout time.Duration, log *slog.Logger) *BusService {
	ctx, cancel := context.WithCancel(parent)
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BusService{
		bus:     busClient,
		gen:     gen,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		logger:  log.With(slog.String("component", "podcast-bus")),
	}
}

func (s *BusService) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectGenerateRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("listening for generation requests", slog.String("subject", protocol.SubjectGenerateRequest))
	return nil
}

func (s *BusService) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *BusService) Healthy() bool { return s.sub != nil && s.sub.IsValid() }

func (s *BusService) handleRequest(msg *nats.Msg) {
	var req protocol.GenerateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode generation request", slogError(err))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		res := s.gen.Generate(ctx, Request{
			RequestID:  req.RequestID,
			Name:       req.Name,
			VoiceAgent: req.VoiceAgent,
			Language:   req.Language,
		})
		if msg.Reply == "" {
			return
		}
		data, err := json.Marshal(res)
		if err != nil {
			s.logger.Warn("failed to marshal generation result", slogError(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			s.logger.Warn("failed to reply to generation request", slogError(err))
		}
	}()
}
