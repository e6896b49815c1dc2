// Package llm defines the contract between the bridge and a generative model
// backend, plus the backends shipped with modelbridge. The bridge treats a
// Capability as opaque: it never inspects prompts or output beyond passing
// them through.
package llm

import (
	"context"
	"errors"
)

// Status is the raw availability reported by a backend. The bridge maps it to
// its own closed set of states; unknown values are tolerated.
type Status string

const (
	StatusAvailable         Status = "available"
	StatusDeviceNotEligible Status = "device_not_eligible"
	StatusNotEnabled        Status = "not_enabled"
	StatusModelNotReady     Status = "model_not_ready"
	StatusUnsupported       Status = "unsupported"
	StatusUnreachable       Status = "unreachable"
)

// ErrUnsupported is returned by Supported when the backend cannot run at all
// in this build or on this platform.
var ErrUnsupported = errors.New("model capability not supported in this build")

// Capability is the model service the bridge invokes.
type Capability interface {
	// Name identifies the backend/model for logs and simulated output.
	Name() string
	// Supported reports whether the backend can be used at all. It must be
	// cheap; it is consulted on every operation.
	Supported() error
	// Availability reports whether the model can be used right now.
	Availability(ctx context.Context) Status
	// Open creates a model session bound to instructions. Instructions are
	// fixed for the lifetime of the returned Session.
	Open(ctx context.Context, instructions string) (Session, error)
}

// Session is a stateful conversational context on the model.
type Session interface {
	// Respond suspends until the model produced a complete response.
	Respond(ctx context.Context, prompt string, opts Options) (string, error)
	// Stream starts incremental generation.
	Stream(ctx context.Context, prompt string, opts Options) (ChunkStream, error)
	// Close releases any resources associated with the session.
	Close() error
}

// ChunkStream yields generated text incrementally. Next returns io.EOF once
// the sequence is exhausted and must return when ctx is canceled.
type ChunkStream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Options are the generation parameters a backend may honour.
// Nil/zero fields mean "backend default".
type Options struct {
	Temperature *float64
	MaxTokens   int
}
