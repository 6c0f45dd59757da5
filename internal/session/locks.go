package session

import "sync"

// Locks hands out one mutex per user key so the router can serialize
// event handling for a user even when the transport delivers events
// concurrently. Locks are never released; the set of users is small
// and bounded by process lifetime, matching the session maps.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for userID and returns its unlock func.
func (l *Locks) Lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
