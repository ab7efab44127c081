// Package cleanup implements C6: grace-period socket cleanup, keyed by
// (userId, socket.type), cancelled on reconnect. It generalizes the
// teacher's single-purpose Hub.scheduleRemoval into a small scheduler any
// subscription type can use.
package cleanup

import (
	"sync"
	"time"
)

type key struct {
	userID string
	typ    string
}

// Scheduler tracks one pending removal timer per (userId, type).
type Scheduler struct {
	mu     sync.Mutex
	timers map[key]*time.Timer
	grace  time.Duration
}

func New(grace time.Duration) *Scheduler {
	return &Scheduler{timers: make(map[key]*time.Timer), grace: grace}
}

// Schedule arms a removal timer; fn runs after the grace period unless
// Cancel is called first for the same (userID, typ).
func (s *Scheduler) Schedule(userID, typ string, fn func()) {
	k := key{userID, typ}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[k]; ok {
		existing.Stop()
	}

	s.timers[k] = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		delete(s.timers, k)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops a pending removal timer, the graceful-reconnect path.
func (s *Scheduler) Cancel(userID, typ string) {
	k := key{userID, typ}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[k]; ok {
		t.Stop()
		delete(s.timers, k)
	}
}
