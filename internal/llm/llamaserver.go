package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LlamaServerConfig configures the HTTP backend.
type LlamaServerConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// LlamaServer talks to a running llama.cpp server (or any OpenAI-compatible
// server) over /v1/chat/completions.
type LlamaServer struct {
	baseURL    string
	apiKey     string
	model      string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewLlamaServer constructs a server-backed capability.
func NewLlamaServer(cfg LlamaServerConfig) *LlamaServer {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead, so long
	// streams are not cut by a client-wide limit.
	return &LlamaServer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		reqTimeout: cfg.RequestTimeout,
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		log:        cfg.Logger,
	}
}

func (a *LlamaServer) Name() string {
	if a.model != "" {
		return a.model
	}
	return "llama-server"
}

func (a *LlamaServer) Supported() error {
	if a.baseURL == "" {
		return fmt.Errorf("%w: llama server url not configured", ErrUnsupported)
	}
	return nil
}

// Availability probes GET /health. llama.cpp answers 503 while the model is
// still loading.
func (a *LlamaServer) Availability(ctx context.Context) Status {
	if a.Supported() != nil {
		return StatusUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return StatusUnreachable
	}
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.log.Debug().Err(err).Msg("llama server health probe failed")
		return StatusUnreachable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusOK:
		return StatusAvailable
	case resp.StatusCode == http.StatusServiceUnavailable:
		return StatusModelNotReady
	default:
		return Status(fmt.Sprintf("http_%d", resp.StatusCode))
	}
}

func (a *LlamaServer) Open(ctx context.Context, instructions string) (Session, error) {
	if err := a.Supported(); err != nil {
		return nil, err
	}
	s := &llamaServerSession{adapter: a}
	if instructions != "" {
		s.transcript = append(s.transcript, chatMessage{Role: "system", Content: instructions})
	}
	return s, nil
}

func (a *LlamaServer) authorize(req *http.Request) {
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type chatStreamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// llamaServerSession keeps the conversation transcript; instructions are the
// leading system message and never change.
type llamaServerSession struct {
	adapter *LlamaServer

	mu         sync.Mutex
	transcript []chatMessage
	closed     bool
}

func (s *llamaServerSession) messagesWith(prompt string) ([]chatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("llama server session closed")
	}
	msgs := make([]chatMessage, 0, len(s.transcript)+1)
	msgs = append(msgs, s.transcript...)
	return append(msgs, chatMessage{Role: "user", Content: prompt}), nil
}

func (s *llamaServerSession) commit(prompt, answer string) {
	s.mu.Lock()
	s.transcript = append(s.transcript,
		chatMessage{Role: "user", Content: prompt},
		chatMessage{Role: "assistant", Content: answer})
	s.mu.Unlock()
}

func (s *llamaServerSession) post(ctx context.Context, prompt string, opts Options, stream bool) (*http.Response, error) {
	msgs, err := s.messagesWith(prompt)
	if err != nil {
		return nil, err
	}
	payload := chatCompletionRequest{
		Model:       s.adapter.model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      stream,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.adapter.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	s.adapter.authorize(req)
	resp, err := s.adapter.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func (s *llamaServerSession) Respond(ctx context.Context, prompt string, opts Options) (string, error) {
	if s.adapter.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.adapter.reqTimeout)
		defer cancel()
	}
	resp, err := s.post(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llama server returned no choices")
	}
	content := out.Choices[0].Message.Content
	s.commit(prompt, content)
	return content, nil
}

func (s *llamaServerSession) Stream(ctx context.Context, prompt string, opts Options) (ChunkStream, error) {
	var cancel context.CancelFunc = func() {}
	if s.adapter.reqTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.adapter.reqTimeout)
	}
	resp, err := s.post(ctx, prompt, opts, true)
	if err != nil {
		cancel()
		return nil, err
	}
	return &sseChunkStream{
		sess:   s,
		prompt: prompt,
		body:   resp.Body,
		r:      bufio.NewReader(resp.Body),
		cancel: cancel,
		log:    s.adapter.log,
	}, nil
}

func (s *llamaServerSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.transcript = nil
	s.mu.Unlock()
	return nil
}

// sseChunkStream parses "data: {...}" lines. Servers that stream raw JSON
// objects per line are tolerated as well.
type sseChunkStream struct {
	sess   *llamaServerSession
	prompt string
	body   io.ReadCloser
	r      *bufio.Reader
	cancel context.CancelFunc
	log    zerolog.Logger

	answer strings.Builder
	done   bool
}

func (st *sseChunkStream) Next(ctx context.Context) (string, error) {
	for {
		if st.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := st.r.ReadString('\n')
		if tok, ok, finished := st.parseLine(line); finished {
			st.finish()
			return "", io.EOF
		} else if ok {
			st.answer.WriteString(tok)
			return tok, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				st.finish()
				return "", io.EOF
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("read stream: %w", err)
		}
	}
}

// parseLine returns (token, hasToken, finished).
func (st *sseChunkStream) parseLine(line string) (string, bool, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false, false
	}
	data := line
	if strings.HasPrefix(strings.ToLower(line), "data:") {
		data = strings.TrimSpace(line[len("data:"):])
	}
	if data == "[DONE]" {
		return "", false, true
	}
	var msg chatStreamResponse
	if err := json.Unmarshal([]byte(data), &msg); err == nil && len(msg.Choices) > 0 {
		if frag := msg.Choices[0].Delta.Content; frag != "" {
			return frag, true, false
		}
		return "", false, false
	}
	var generic map[string]any
	if err := json.Unmarshal([]byte(data), &generic); err == nil {
		if tok, ok := generic["content"].(string); ok && tok != "" {
			return tok, true, false
		}
		if stop, ok := generic["stop"].(bool); ok && stop {
			return "", false, true
		}
		return "", false, false
	}
	st.log.Debug().Str("line", line).Msg("unknown stream line")
	return "", false, false
}

func (st *sseChunkStream) finish() {
	if st.done {
		return
	}
	st.done = true
	st.sess.commit(st.prompt, st.answer.String())
}

func (st *sseChunkStream) Close() error {
	st.cancel()
	return st.body.Close()
}
