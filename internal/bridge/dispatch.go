package bridge

import (
	"context"
	"strings"
	"time"
)

// CreateSession creates a session, generating an id when id is empty, and
// returns the resolved id. Reusing an id silently replaces the previous
// session.
func (b *Bridge) CreateSession(ctx context.Context, id, instructions string) (string, error) {
	if err := b.gate(); err != nil {
		return "", err
	}
	if id != "" && strings.TrimSpace(id) == "" {
		return "", errInvalidArgument("sessionId must not be blank")
	}
	if len(id) > maxSessionIDLen {
		return "", errInvalidArgument("sessionId is too long")
	}
	s, replaced, err := b.registry.Create(ctx, id, instructions)
	if err != nil {
		b.log.Error().Err(err).Str("session", id).Msg("session create failed")
		return "", errLoadFailed(err)
	}
	sessionsCreatedTotal.WithLabelValues(boolLabel(replaced)).Inc()
	sessionsActive.Inc()
	name := "session_created"
	if replaced {
		name = "session_replaced"
	}
	b.log.Info().Str("session", s.ID()).Bool("replaced", replaced).Bool("instructions", instructions != "").Msg(name)
	b.publisher.Publish(Event{Name: name, SessionID: s.ID()})
	return s.ID(), nil
}

const maxSessionIDLen = 256

// Session looks up a session by id.
func (b *Bridge) Session(id string) (*Session, error) {
	if err := b.gate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errInvalidArgument("sessionId is required")
	}
	s, ok := b.registry.Get(id)
	if !ok {
		return nil, errNoSession(id)
	}
	return s, nil
}

// resolve applies the shared validation order: required arguments first,
// then session lookup.
func (b *Bridge) resolve(sessionID, prompt string) (*Session, error) {
	if sessionID == "" {
		return nil, errInvalidArgument("sessionId is required")
	}
	if prompt == "" {
		return nil, errInvalidArgument("prompt is required")
	}
	s, ok := b.registry.Get(sessionID)
	if !ok {
		return nil, errNoSession(sessionID)
	}
	return s, nil
}

// Generate runs one synchronous generation and returns the complete text.
// Calls on different sessions run independently; calls on the same session
// are serialized in arrival order of their queue slot.
func (b *Bridge) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := b.gate(); err != nil {
		return "", err
	}
	sess, err := b.resolve(req.SessionID, req.Prompt)
	if err != nil {
		generationsTotal.WithLabelValues(string(CodeOf(err))).Inc()
		return "", err
	}
	opts := ParseOptions(req.Options)

	release, err := b.registry.acquire(ctx, sess)
	if err != nil {
		if CodeOf(err) == "" {
			err = errGenerationFailed(err)
		}
		generationsTotal.WithLabelValues(string(CodeOf(err))).Inc()
		return "", err
	}
	defer release()

	if b.generateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.generateTimeout)
		defer cancel()
	}

	start := time.Now()
	b.publisher.Publish(Event{Name: "generate_start", SessionID: sess.ID()})
	text, err := sess.model.Respond(ctx, req.Prompt, opts.llm())
	dur := time.Since(start)
	if err != nil {
		b.log.Warn().Err(err).Str("session", sess.ID()).Dur("dur", dur).Msg("generate failed")
		b.publisher.Publish(Event{Name: "generate_failed", SessionID: sess.ID(), Fields: map[string]any{"error": err.Error()}})
		generationsTotal.WithLabelValues(string(CodeGenerationFailed)).Inc()
		generationDuration.WithLabelValues("error").Observe(dur.Seconds())
		return "", errGenerationFailed(err)
	}
	b.log.Debug().Str("session", sess.ID()).Dur("dur", dur).Int("len", len(text)).Msg("generate done")
	b.publisher.Publish(Event{Name: "generate_done", SessionID: sess.ID(), Fields: map[string]any{"dur_ms": dur.Milliseconds()}})
	generationsTotal.WithLabelValues("ok").Inc()
	generationDuration.WithLabelValues("ok").Observe(dur.Seconds())
	return text, nil
}

// Result is the future returned by GenerateAsync.
type Result struct {
	done chan struct{}
	text string
	err  error
}

// Done is closed once the result is available.
func (r *Result) Done() <-chan struct{} { return r.done }

// Text returns the generated text; valid after Done is closed.
func (r *Result) Text() string { return r.text }

// Err returns the generation error; valid after Done is closed.
func (r *Result) Err() error { return r.err }

// Wait blocks until the result is ready or ctx is done.
func (r *Result) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GenerateAsync starts Generate in its own goroutine and returns immediately.
func (b *Bridge) GenerateAsync(ctx context.Context, req GenerateRequest) *Result {
	r := &Result{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.text, r.err = b.Generate(ctx, req)
	}()
	return r
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
