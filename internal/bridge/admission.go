package bridge

import (
	"context"
	"time"
)

// acquire reserves a queue slot and then the single in-flight slot of s.
// Returns a release func to be deferred.
func (r *Registry) acquire(ctx context.Context, s *Session) (func(), error) {
	if s.closed.Load() {
		return func() {}, errNoSession(s.id)
	}
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(r.cfg.maxWait)
	defer timer.Stop()
	select {
	case s.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, errSessionBusy(s.id)
	}

	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
		}
	}()
	select {
	case s.genCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, errSessionBusy(s.id)
	}
	s.closeMu.Lock()
	if s.closed.Load() {
		s.closeMu.Unlock()
		<-s.genCh
		return func() {}, errNoSession(s.id)
	}
	acquired = true
	s.closeMu.Unlock()
	s.lastUsed.Store(time.Now().UnixNano())
	return func() { <-s.genCh; <-s.queueCh }, nil
}
