//go:build llama

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// Llama runs llama.cpp in-process through go-llama.cpp. Weights are loaded
// once; sessions share the model and hold only their transcript. The
// binding is not safe for concurrent prediction, so calls are serialized.
type Llama struct {
	cfg LlamaConfig

	mu    sync.Mutex
	model *llama.LLama
	err   error
}

func NewLlama(cfg LlamaConfig) (*Llama, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("llama: model path is required")
	}
	if cfg.Context <= 0 {
		cfg.Context = 2048
	}
	l := &Llama{cfg: cfg}
	m, err := llama.New(cfg.ModelPath, llama.SetContext(cfg.Context), llama.SetGPULayers(cfg.GPULayers))
	if err != nil {
		l.err = fmt.Errorf("llama: load %s: %w", cfg.ModelPath, err)
		return l, nil
	}
	l.model = m
	return l, nil
}

func (l *Llama) Name() string { return l.cfg.ModelID }

func (l *Llama) Supported() error { return nil }

func (l *Llama) Availability(ctx context.Context) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return StatusModelNotReady
	}
	return StatusAvailable
}

func (l *Llama) Open(ctx context.Context, instructions string) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		if l.err != nil {
			return nil, l.err
		}
		return nil, errors.New("llama: model not loaded")
	}
	return &llamaSession{l: l, instructions: instructions}, nil
}

func (l *Llama) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		l.model.Free()
		l.model = nil
	}
	return nil
}

func (l *Llama) predict(ctx context.Context, prompt string, opts Options, onToken func(string) bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return "", errors.New("llama: model not loaded")
	}
	popts := []llama.PredictOption{
		llama.SetTokenCallback(func(tok string) bool {
			if ctx.Err() != nil {
				return false
			}
			if onToken != nil {
				return onToken(tok)
			}
			return true
		}),
	}
	if l.cfg.Threads > 0 {
		popts = append(popts, llama.SetThreads(l.cfg.Threads))
	}
	if opts.MaxTokens > 0 {
		popts = append(popts, llama.SetTokens(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		popts = append(popts, llama.SetTemperature(float32(*opts.Temperature)))
	}
	out, err := l.model.Predict(prompt, popts...)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return out, err
}

type llamaSession struct {
	l            *Llama
	instructions string

	mu     sync.Mutex
	turns  [][2]string
	closed bool
}

func (s *llamaSession) prompt(p string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errors.New("llama: session closed")
	}
	return transcriptPrompt(s.instructions, s.turns, p), nil
}

func (s *llamaSession) commit(p, answer string) {
	s.mu.Lock()
	s.turns = append(s.turns, [2]string{p, answer})
	s.mu.Unlock()
}

func (s *llamaSession) Respond(ctx context.Context, p string, opts Options) (string, error) {
	full, err := s.prompt(p)
	if err != nil {
		return "", err
	}
	out, err := s.l.predict(ctx, full, opts, nil)
	if err != nil {
		return "", err
	}
	s.commit(p, out)
	return out, nil
}

func (s *llamaSession) Stream(ctx context.Context, p string, opts Options) (ChunkStream, error) {
	full, err := s.prompt(p)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	st := &tokenStream{tokens: make(chan string), errc: make(chan error, 1), cancel: cancel}
	go func() {
		out, err := s.l.predict(ctx, full, opts, func(tok string) bool {
			select {
			case st.tokens <- tok:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err == nil {
			s.commit(p, out)
		}
		st.errc <- err
		close(st.tokens)
	}()
	return st, nil
}

func (s *llamaSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.turns = nil
	s.mu.Unlock()
	return nil
}

// tokenStream adapts the callback-driven predictor to pull semantics.
type tokenStream struct {
	tokens chan string
	errc   chan error
	cancel context.CancelFunc

	finished bool
	final    error
}

func (st *tokenStream) Next(ctx context.Context) (string, error) {
	select {
	case tok, ok := <-st.tokens:
		if ok {
			return tok, nil
		}
		if !st.finished {
			st.finished = true
			st.final = <-st.errc
		}
		if st.final != nil {
			return "", st.final
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (st *tokenStream) Close() error {
	st.cancel()
	return nil
}
