package bridge

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"modelbridge/internal/llm"
)

// Session is a conversational context bound to one model session. Its
// instructions are fixed at creation.
type Session struct {
	id           string
	instructions string
	createdAt    time.Time
	lastUsed     atomic.Int64

	model llm.Session

	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots

	// closeMu orders the retirer's idle check against acquire's closed
	// re-check, so the model is never closed under a held slot.
	closeMu sync.Mutex
	retired atomic.Bool
	closed  atomic.Bool
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Instructions() string { return s.instructions }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastUsed is the time the session last started a generation or stream.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

// QueueLen counts queued plus in-flight requests.
func (s *Session) QueueLen() int { return len(s.queueCh) }

// Inflight is 1 while a generation or stream holds the session.
func (s *Session) Inflight() int { return len(s.genCh) }

type registryConfig struct {
	open          func(ctx context.Context, instructions string) (llm.Session, error)
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration
	onRetired     func(*Session)
}

// Registry maps session ids to sessions. Lookups take a read lock; create
// and overwrite take the write lock. No operation spans more than one entry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      registryConfig
	retiring atomic.Int32
}

func newRegistry(cfg registryConfig) *Registry {
	return &Registry{sessions: make(map[string]*Session), cfg: cfg}
}

// Create opens a model session bound to instructions and stores it under id,
// generating a fresh id when id is empty. An existing entry under the same id
// is replaced and retired. The boolean reports whether a replacement happened.
func (r *Registry) Create(ctx context.Context, id, instructions string) (*Session, bool, error) {
	if id == "" {
		id = uuid.NewString()
	}
	model, err := r.cfg.open(ctx, instructions)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	s := &Session{
		id:           id,
		instructions: instructions,
		createdAt:    now,
		model:        model,
		genCh:        make(chan struct{}, 1),
		queueCh:      make(chan struct{}, r.cfg.maxQueueDepth),
	}
	s.lastUsed.Store(now.UnixNano())

	r.mu.Lock()
	prev := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if prev != nil {
		r.retire(prev)
	}
	return s, prev != nil, nil
}

// Get is a pure lookup; it never creates.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Retiring counts replaced sessions that are still draining.
func (r *Registry) Retiring() int { return int(r.retiring.Load()) }

// Sessions returns the live sessions ordered by id.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// retire lets queued and in-flight work on a replaced session finish, up to
// drainTimeout, then closes its model handle. Holders of the old *Session
// keep talking to the old model until then; they never see the replacement.
func (r *Registry) retire(s *Session) {
	if !s.retired.CompareAndSwap(false, true) {
		return
	}
	r.retiring.Add(1)
	go func() {
		defer r.retiring.Add(-1)
		deadline := time.Now().Add(r.cfg.drainTimeout)
		for {
			s.closeMu.Lock()
			if (len(s.genCh) == 0 && len(s.queueCh) == 0) || time.Now().After(deadline) {
				s.closed.Store(true)
				s.closeMu.Unlock()
				break
			}
			s.closeMu.Unlock()
			time.Sleep(10 * time.Millisecond)
		}
		_ = s.model.Close()
		if r.cfg.onRetired != nil {
			r.cfg.onRetired(s)
		}
	}()
}
