package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// Session owns the polling loop for one authenticated operator session.
// Start begins polling, Stop (logout) cancels it and waits for the loop to
// exit. Results of fetches still in flight at Stop are dropped.
type Session struct {
	base       context.Context
	reconciler *Reconciler

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

// NewSession binds sessions to base, normally the process context, so a
// session outlives the request that started it.
func NewSession(base context.Context, r *Reconciler) *Session {
	return &Session{base: base, reconciler: r}
}

// Start launches the loop. It returns false if a session is already active.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.cancel, s.done, s.startedAt = cancel, done, time.Now()

	go func() {
		defer close(done)
		s.reconciler.Run(ctx)
	}()
	log.Printf("Operator session started")
	return true
}

// Stop ends the session. It returns false if none was active.
func (s *Session) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	log.Printf("Operator session stopped")
	return true
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// StartedAt is the zero time when no session is active.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return time.Time{}
	}
	return s.startedAt
}
