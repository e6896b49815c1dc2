package bridge

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"modelbridge/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCapability is an in-memory llm.Capability whose behaviour is set per test.
type fakeCapability struct {
	supportedErr error
	status       llm.Status
	panicProbe   bool
	openErr      error

	// respond overrides the default echo of instructions and prompt.
	respond func(ctx context.Context, instructions, prompt string, opts llm.Options) (string, error)
	// chunks are streamed in order, followed by streamErr (or io.EOF).
	chunks    []string
	streamErr error
	// step, when non-nil, must yield one value before each chunk is released.
	step chan struct{}

	opens    atomic.Int32
	calls    atomic.Int32
	mu       sync.Mutex
	sessions []*fakeModel
}

func (f *fakeCapability) Name() string     { return "fake" }
func (f *fakeCapability) Supported() error { return f.supportedErr }

func (f *fakeCapability) Availability(ctx context.Context) llm.Status {
	if f.panicProbe {
		panic("probe exploded")
	}
	return f.status
}

func (f *fakeCapability) Open(ctx context.Context, instructions string) (llm.Session, error) {
	f.opens.Add(1)
	if f.openErr != nil {
		return nil, f.openErr
	}
	m := &fakeModel{cap: f, instructions: instructions}
	f.mu.Lock()
	f.sessions = append(f.sessions, m)
	f.mu.Unlock()
	return m, nil
}

func (f *fakeCapability) model(i int) *fakeModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[i]
}

type fakeModel struct {
	cap          *fakeCapability
	instructions string
	closed       atomic.Bool
}

func (m *fakeModel) Respond(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.cap.calls.Add(1)
	if m.closed.Load() {
		return "", errors.New("closed")
	}
	if m.cap.respond != nil {
		return m.cap.respond(ctx, m.instructions, prompt, opts)
	}
	return m.instructions + "|" + prompt, nil
}

func (m *fakeModel) Stream(ctx context.Context, prompt string, opts llm.Options) (llm.ChunkStream, error) {
	m.cap.calls.Add(1)
	if m.closed.Load() {
		return nil, errors.New("closed")
	}
	return &fakeStream{chunks: m.cap.chunks, err: m.cap.streamErr, step: m.cap.step}, nil
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeStream struct {
	chunks []string
	err    error
	step   chan struct{}
	pos    int
}

func (s *fakeStream) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	if s.step != nil {
		select {
		case <-s.step:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

func newTestBridge(t *testing.T, fc *fakeCapability, mutate ...func(*Config)) *Bridge {
	t.Helper()
	cfg := Config{MaxWait: 2 * time.Second, DrainTimeout: 200 * time.Millisecond}
	if fc != nil {
		cfg.Capability = fc
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	b := New(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
		waitRetired(t, b)
	})
	return b
}

// waitRetired waits for replaced sessions to finish draining so no retire
// goroutine outlives the test.
func waitRetired(t *testing.T, b *Bridge) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.registry.retiring.Load() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sessions still retiring")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// collect reads events until the channel is closed.
func collect(t *testing.T, sub *Subscription) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timeout collecting events; got %v", out)
			return out
		}
	}
}

func contents(evs []StreamEvent) []string {
	var out []string
	for _, ev := range evs {
		if ev.Type == EventChunk {
			out = append(out, ev.Content)
		}
	}
	return out
}

func joined(evs []StreamEvent) string { return strings.Join(contents(evs), "") }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func atomicAdd(p *int32, d int32) int32 { return atomic.AddInt32(p, d) }

func atomicMax(p *int32, v int32) {
	for {
		cur := atomic.LoadInt32(p)
		if v <= cur || atomic.CompareAndSwapInt32(p, cur, v) {
			return
		}
	}
}
