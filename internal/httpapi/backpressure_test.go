package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"modelbridge/internal/bridge"
	"modelbridge/internal/llm"
)

func backpressureCount(t *testing.T, reason string) float64 {
	t.Helper()
	var m dto.Metric
	if err := backpressureTotal.WithLabelValues(reason).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestBusyStreamCountsBackpressure(t *testing.T) {
	b := bridge.New(bridge.Config{
		Capability:    llm.NewSimulated(llm.SimulatedConfig{Delay: 500 * time.Millisecond}),
		MaxQueueDepth: 1,
		MaxWait:       10 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Cleanup(func() { _ = b.Shutdown(ctx) })
	if _, err := b.CreateSession(ctx, "s1", ""); err != nil {
		t.Fatal(err)
	}
	// hold the only slot
	held := b.GenerateAsync(ctx, bridge.GenerateRequest{SessionID: "s1", Prompt: "slow"})
	deadline := time.Now().Add(time.Second)
	for {
		s, err := b.Session("s1")
		if err != nil {
			t.Fatal(err)
		}
		if s.Inflight() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("generation never took the slot")
		}
		time.Sleep(2 * time.Millisecond)
	}

	before := backpressureCount(t, "session_busy")
	w := do(t, NewMux(b), http.MethodPost, "/v1/streams", `{"session_id":"s1","prompt":"count"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	events := readEvents(t, w.Body.String())
	if len(events) != 1 || events[0].Type != "error" || events[0].Code != string(bridge.CodeSessionBusy) {
		t.Fatalf("events=%+v", events)
	}
	if got := backpressureCount(t, "session_busy"); got != before+1 {
		t.Fatalf("backpressure_total{session_busy}=%v want %v", got, before+1)
	}
	if _, err := held.Wait(ctx); err != nil {
		t.Fatalf("held generation: %v", err)
	}
}
