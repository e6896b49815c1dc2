//go:build !llama

package llm

import (
	"context"
	"fmt"
)

// Llama is a stub compiled when the 'llama' build tag is NOT set, keeping
// default builds CGO-free. It reports itself unsupported so every bridge
// operation except the availability probe fails uniformly.
type Llama struct {
	cfg LlamaConfig
}

func NewLlama(cfg LlamaConfig) (*Llama, error) {
	return &Llama{cfg: cfg}, nil
}

func (l *Llama) Name() string { return l.cfg.ModelID }

func (l *Llama) Supported() error {
	return fmt.Errorf("%w: missing 'llama' build tag", ErrUnsupported)
}

func (l *Llama) Availability(ctx context.Context) Status { return StatusUnsupported }

func (l *Llama) Open(ctx context.Context, instructions string) (Session, error) {
	return nil, l.Supported()
}

func (l *Llama) Close() error { return nil }
