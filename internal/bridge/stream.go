package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/google/uuid"
)

const streamIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Subscription is the caller's handle on one stream. Exactly one task runs
// per subscription; a terminal subscription is never reused.
type Subscription struct {
	id        string
	sessionID string
	events    chan StreamEvent
	state     atomic.Int32
	cancel    context.CancelFunc
	done      chan struct{}
}

// ID returns the handle used with CancelStream. It is empty for a
// subscription rejected at validation, which is never registered.
func (s *Subscription) ID() string        { return s.id }
func (s *Subscription) SessionID() string { return s.sessionID }

// Events delivers the stream. The channel is closed after the terminal event
// or after cancellation.
func (s *Subscription) Events() <-chan StreamEvent { return s.events }

// Done is closed once the underlying task has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) State() StreamState { return StreamState(s.state.Load()) }

// Cancel withdraws interest. Only an active subscription moves to
// StreamCancelled; on a terminal one Cancel is a no-op. A chunk already
// queued on Events may still be observed after Cancel returns; no end or
// error event is delivered after it.
func (s *Subscription) Cancel() {
	if s.transition(StreamCancelled) {
		s.cancel()
	}
}

// transition moves Active to a terminal state. Whoever wins decides how the
// subscription ends.
func (s *Subscription) transition(to StreamState) bool {
	return s.state.CompareAndSwap(int32(StreamActive), int32(to))
}

func (s *Subscription) send(ctx context.Context, ev StreamEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// rejectedSubscription carries a single error event and is already Failed.
func rejectedSubscription(sessionID string, err error) *Subscription {
	s := &Subscription{
		sessionID: sessionID,
		events:    make(chan StreamEvent, 1),
		cancel:    func() {},
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StreamFailed))
	s.events <- errorEvent(err)
	close(s.events)
	close(s.done)
	return s
}

func errorEvent(err error) StreamEvent {
	code := CodeOf(err)
	if code == "" {
		code = CodeStreamError
	}
	return StreamEvent{Type: EventError, Code: code, Message: err.Error()}
}

// Coordinator tracks active subscriptions by handle.
type Coordinator struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	buffer int
}

func newCoordinator(buffer int) *Coordinator {
	return &Coordinator{subs: make(map[string]*Subscription), buffer: buffer}
}

func (c *Coordinator) add(s *Subscription) {
	c.mu.Lock()
	c.subs[s.id] = s
	c.mu.Unlock()
	streamsActive.Inc()
}

func (c *Coordinator) remove(id string) {
	c.mu.Lock()
	_, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		streamsActive.Dec()
	}
}

// Get returns an active subscription by handle.
func (c *Coordinator) Get(id string) (*Subscription, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.subs[id]
	return s, ok
}

// Active returns the handles of all active subscriptions.
func (c *Coordinator) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for id := range c.subs {
		out = append(out, id)
	}
	return out
}

// Shutdown cancels every active subscription and waits for their tasks.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
	for _, s := range subs {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func newStreamID() string {
	id, err := nanoid.Generate(streamIDAlphabet, 21)
	if err != nil {
		return uuid.NewString()
	}
	return id
}

// Subscribe starts a stream on a session. It always returns a handle: when
// validation fails the handle is already StreamFailed and its only event is
// the error. The stream also ends as cancelled when ctx is done.
func (b *Bridge) Subscribe(ctx context.Context, req StreamRequest) *Subscription {
	if err := b.gate(); err != nil {
		streamsTotal.WithLabelValues(StreamFailed.String()).Inc()
		return rejectedSubscription(req.SessionID, err)
	}
	sess, err := b.resolve(req.SessionID, req.Prompt)
	if err != nil {
		streamsTotal.WithLabelValues(StreamFailed.String()).Inc()
		return rejectedSubscription(req.SessionID, err)
	}
	opts := ParseOptions(req.Options)

	sctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:        newStreamID(),
		sessionID: sess.ID(),
		events:    make(chan StreamEvent, b.streams.buffer),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	b.streams.add(sub)
	b.log.Debug().Str("stream", sub.id).Str("session", sess.ID()).Msg("stream start")
	b.publisher.Publish(Event{Name: "stream_start", SessionID: sess.ID(), Fields: map[string]any{"stream": sub.id}})
	go b.runStream(sctx, sub, sess, req.Prompt, opts)
	return sub
}

// CancelStream cancels a subscription by handle. Unknown and terminal
// handles are a no-op.
func (b *Bridge) CancelStream(id string) error {
	if err := b.gate(); err != nil {
		return err
	}
	if s, ok := b.streams.Get(id); ok {
		s.Cancel()
	}
	return nil
}

// ActiveStreams returns the handles of all active subscriptions.
func (b *Bridge) ActiveStreams() []string { return b.streams.Active() }

func (b *Bridge) runStream(ctx context.Context, sub *Subscription, sess *Session, prompt string, opts Options) {
	start := time.Now()
	chunks := 0
	defer func() {
		// A task that exits while still active lost its context.
		sub.transition(StreamCancelled)
		sub.cancel()
		b.streams.remove(sub.id)
		close(sub.events)
		state := sub.State()
		streamsTotal.WithLabelValues(state.String()).Inc()
		b.log.Debug().Str("stream", sub.id).Str("state", state.String()).Int("chunks", chunks).Dur("dur", time.Since(start)).Msg("stream end")
		b.publisher.Publish(Event{Name: "stream_" + state.String(), SessionID: sess.ID(), Fields: map[string]any{"stream": sub.id, "chunks": chunks}})
		close(sub.done)
	}()

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		if sub.transition(StreamFailed) {
			b.log.Warn().Err(err).Str("stream", sub.id).Msg("stream failed")
			sub.send(ctx, errorEvent(err))
		}
	}

	release, err := b.registry.acquire(ctx, sess)
	if err != nil {
		fail(err)
		return
	}
	defer release()

	st, err := sess.model.Stream(ctx, prompt, opts.llm())
	if err != nil {
		fail(errStream(err))
		return
	}
	defer st.Close()

	for {
		chunk, err := st.Next(ctx)
		if errors.Is(err, io.EOF) {
			if sub.transition(StreamCompleted) {
				sub.send(ctx, StreamEvent{Type: EventEnd})
			}
			return
		}
		if err != nil {
			fail(errStream(err))
			return
		}
		if !sub.send(ctx, StreamEvent{Type: EventChunk, Content: chunk}) {
			return
		}
		chunks++
		streamChunksTotal.Inc()
	}
}
