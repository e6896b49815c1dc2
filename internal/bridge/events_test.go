package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestLifecycleEventsPublished(t *testing.T) {
	pub := NewMemoryPublisher()
	b := newTestBridge(t, &fakeCapability{chunks: []string{"x"}}, func(c *Config) { c.Publisher = pub })
	ctx := testCtx(t)
	if _, err := b.CreateSession(ctx, "s1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Generate(ctx, GenerateRequest{SessionID: "s1", Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}
	sub := b.Subscribe(ctx, StreamRequest{SessionID: "s1", Prompt: "go"})
	collect(t, sub)
	<-sub.Done()
	if _, err := b.CreateSession(ctx, "s1", "v2"); err != nil {
		t.Fatal(err)
	}
	waitRetired(t, b)

	want := []string{
		"session_created", "generate_start", "generate_done",
		"stream_start", "stream_completed", "session_replaced", "session_retired",
	}
	waitFor(t, func() bool { return len(pub.Names()) == len(want) })
	got := pub.Names()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events=%v want %v", got, want)
		}
	}
	for _, e := range pub.Events() {
		if e.SessionID != "s1" {
			t.Fatalf("event %s missing session id", e.Name)
		}
	}
}

func TestSetEventPublisherNilFallsBackToNoop(t *testing.T) {
	b := newTestBridge(t, &fakeCapability{})
	b.SetEventPublisher(nil)
	if _, err := b.CreateSession(testCtx(t), "", ""); err != nil {
		t.Fatal(err)
	}
}

func TestEncodeEvent(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	raw, err := encodeEvent(Event{Name: "stream_cancelled", SessionID: "s1", Fields: map[string]any{"chunks": 2}}, now)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "stream_cancelled" || got["session_id"] != "s1" || got["ts_unix_ms"] != float64(1700000000123) {
		t.Fatalf("payload=%s", raw)
	}
	if got["fields"].(map[string]any)["chunks"] != float64(2) {
		t.Fatalf("fields lost: %s", raw)
	}
}

func TestRedisPublisherNeverBlocks(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
		PoolSize:    64,
	})
	defer client.Close()
	p := NewRedisPublisher(client, "", zerolog.Nop())

	start := time.Now()
	for range 3 {
		p.Publish(Event{Name: "session_created", SessionID: "s1"})
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Fatalf("Publish blocked on an unreachable server")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	p.Publish(Event{Name: "after_close"})
}
