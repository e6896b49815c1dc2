package bridge

import (
	"time"

	"github.com/rs/zerolog"

	"modelbridge/internal/llm"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth   = 32
	defaultMaxWait         = 30 * time.Second
	defaultDrainTimeout    = 10 * time.Second
	defaultGenerateTimeout = 2 * time.Minute
	defaultStreamBuffer    = 16
)

// Config encapsulates all tunables for Bridge construction.
type Config struct {
	// Capability is the model backend. A nil capability is legal: every
	// operation then fails with NO_MODEL and availability reports unavailable.
	Capability llm.Capability
	Logger     *zerolog.Logger
	Publisher  EventPublisher
	// MaxQueueDepth bounds queued plus in-flight requests per session.
	MaxQueueDepth int
	// MaxWait bounds how long a request waits for its session slot.
	MaxWait time.Duration
	// DrainTimeout bounds how long a replaced session may finish queued work
	// before its model handle is closed.
	DrainTimeout time.Duration
	// GenerateTimeout bounds a synchronous generation. Negative disables it.
	GenerateTimeout time.Duration
	// StreamBuffer is the per-subscription event channel capacity.
	StreamBuffer int
}

func (c Config) withDefaults() Config {
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = defaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.GenerateTimeout == 0 {
		c.GenerateTimeout = defaultGenerateTimeout
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = defaultStreamBuffer
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
