package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// SimulatedConfig tunes the in-memory backend.
type SimulatedConfig struct {
	Model string
	// Delay before a full response is returned; also split across chunks
	// when streaming.
	Delay time.Duration
	// Status reported by Availability. Empty means available.
	Status Status
	// Unsupported makes Supported fail, exercising the uniform gate.
	Unsupported bool
}

// Simulated is a deterministic backend with no external dependency. It is the
// default so the bridge can be run and tested anywhere.
type Simulated struct {
	cfg SimulatedConfig
}

func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.Model == "" {
		cfg.Model = "simulated"
	}
	return &Simulated{cfg: cfg}
}

func (s *Simulated) Name() string { return s.cfg.Model }

func (s *Simulated) Supported() error {
	if s.cfg.Unsupported {
		return ErrUnsupported
	}
	return nil
}

func (s *Simulated) Availability(ctx context.Context) Status {
	if s.cfg.Status == "" {
		return StatusAvailable
	}
	return s.cfg.Status
}

func (s *Simulated) Open(ctx context.Context, instructions string) (Session, error) {
	if err := s.Supported(); err != nil {
		return nil, err
	}
	return &simulatedSession{cap: s, instructions: instructions}, nil
}

type simulatedSession struct {
	cap          *Simulated
	instructions string

	mu     sync.Mutex
	turns  int
	closed bool
}

func (s *simulatedSession) response(prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("simulated session closed")
	}
	s.turns++
	out := fmt.Sprintf("Simulated response from %s for prompt: %q", s.cap.cfg.Model, prompt)
	if s.instructions != "" {
		out += fmt.Sprintf(" (instructions: %s)", s.instructions)
	}
	return out, nil
}

func (s *simulatedSession) Respond(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := sleepCtx(ctx, s.cap.cfg.Delay); err != nil {
		return "", err
	}
	out, err := s.response(prompt)
	if err != nil {
		return "", err
	}
	if opts.MaxTokens > 0 {
		out = truncateWords(out, opts.MaxTokens)
	}
	return out, nil
}

func (s *simulatedSession) Stream(ctx context.Context, prompt string, opts Options) (ChunkStream, error) {
	out, err := s.response(prompt)
	if err != nil {
		return nil, err
	}
	if opts.MaxTokens > 0 {
		out = truncateWords(out, opts.MaxTokens)
	}
	chunks := splitKeepSpace(out)
	var step time.Duration
	if len(chunks) > 0 {
		step = s.cap.cfg.Delay / time.Duration(len(chunks))
	}
	return &sliceStream{chunks: chunks, step: step}, nil
}

func (s *simulatedSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// sliceStream yields pre-computed chunks with an optional pause between them.
type sliceStream struct {
	chunks []string
	step   time.Duration
	pos    int
}

func (st *sliceStream) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if st.pos >= len(st.chunks) {
		return "", io.EOF
	}
	if err := sleepCtx(ctx, st.step); err != nil {
		return "", err
	}
	c := st.chunks[st.pos]
	st.pos++
	return c, nil
}

func (st *sliceStream) Close() error { return nil }

// splitKeepSpace splits s into words, each carrying its trailing space, so
// that concatenating the chunks reproduces s.
func splitKeepSpace(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, ' ')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

func truncateWords(s string, n int) string {
	words := splitKeepSpace(s)
	if len(words) <= n {
		return s
	}
	return strings.TrimRight(strings.Join(words[:n], ""), " ")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
