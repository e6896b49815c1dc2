package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modelbridge/internal/llm"
)

// Bridge owns the session registry and the stream coordinator for one model
// capability. It is created once and lives for the process lifetime.
type Bridge struct {
	cap       llm.Capability
	registry  *Registry
	streams   *Coordinator
	log       zerolog.Logger
	publisher EventPublisher

	generateTimeout time.Duration
	startTime       time.Time
}

// New constructs a Bridge from cfg, applying package defaults.
func New(cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	b := &Bridge{
		cap:             cfg.Capability,
		log:             *cfg.Logger,
		publisher:       cfg.Publisher,
		generateTimeout: cfg.GenerateTimeout,
		startTime:       time.Now(),
	}
	b.registry = newRegistry(registryConfig{
		open:          b.openModel,
		maxQueueDepth: cfg.MaxQueueDepth,
		maxWait:       cfg.MaxWait,
		drainTimeout:  cfg.DrainTimeout,
		onRetired:     b.sessionRetired,
	})
	b.streams = newCoordinator(cfg.StreamBuffer)
	return b
}

// SetEventPublisher replaces the lifecycle event sink. Not safe for use
// concurrently with other operations; call it during setup.
func (b *Bridge) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	b.publisher = p
}

// Backend returns the capability name, or "" when none is configured.
func (b *Bridge) Backend() string {
	if b.cap == nil {
		return ""
	}
	return b.cap.Name()
}

// gate is consulted first by every operation except the availability probe,
// so an unusable capability fails all of them the same way.
func (b *Bridge) gate() error {
	if b.cap == nil {
		return errNoModel()
	}
	if err := b.cap.Supported(); err != nil {
		return errUnsupported(err)
	}
	return nil
}

func (b *Bridge) openModel(ctx context.Context, instructions string) (llm.Session, error) {
	return b.cap.Open(ctx, instructions)
}

func (b *Bridge) sessionRetired(s *Session) {
	sessionsActive.Dec()
	b.log.Info().Str("session", s.ID()).Msg("session retired")
	b.publisher.Publish(Event{Name: "session_retired", SessionID: s.ID()})
}

// Shutdown cancels every active stream and waits for their tasks to finish
// or ctx to expire.
func (b *Bridge) Shutdown(ctx context.Context) error {
	return b.streams.Shutdown(ctx)
}
