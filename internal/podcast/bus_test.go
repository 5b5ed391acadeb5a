package podcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/bus"
	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/natsserver"
	"github.com/loqalabs/loqa-podcast/internal/protocol"
	"github.com/nats-io/nats.go"
)

func TestBusServiceRepliesWithResult(t *testing.T) {
	cfg := config.BusConfig{Enabled: true, Embedded: true, Port: -1, ConnectTimeout: 2000}
	srv, err := natsserver.Start(cfg, newLogger())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	defer srv.Shutdown()

	ctx := context.Background()
	client, err := bus.Connect(ctx, cfg, newLogger(), srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	h := newHarness(t, true)
	h.deps.Publisher = client
	svc := NewBusService(ctx, client, h.orchestrator(t), time.Minute, newLogger())
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	defer svc.Close()
	if !svc.Healthy() {
		t.Fatalf("service should be healthy after start")
	}

	completed := make(chan *nats.Msg, 1)
	sub, err := client.Conn().ChanSubscribe(protocol.SubjectGenerateCompleted, completed)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	payload, _ := json.Marshal(protocol.GenerateRequest{RequestID: "bus-1", Name: "Desk", Language: "en"})
	msg, err := client.Conn().Request(protocol.SubjectGenerateRequest, payload, 10*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var res Result
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if res.Status != StatusSuccess || res.RequestID != "bus-1" || res.Audio.English == nil {
		t.Fatalf("unexpected reply %+v", res)
	}

	select {
	case m := <-completed:
		var outcome protocol.GenerationOutcome
		if err := json.Unmarshal(m.Data, &outcome); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		if outcome.RequestID != "bus-1" || outcome.Audio["en"] == "" {
			t.Fatalf("unexpected outcome %+v", outcome)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for completion event")
	}
}
