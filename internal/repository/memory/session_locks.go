package memory

import (
	"sync"
)

// SessionLocks is the per-session mutual-exclusion domain: the
// write-perspective / read-back / claim-completion sequence for one session
// runs under its lock. Different sessions never contend.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *SessionLocks) lockFor(sessionId string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[sessionId]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionId] = m
	}
	return m
}

func (l *SessionLocks) Lock(sessionId string) {
	l.lockFor(sessionId).Lock()
}

func (l *SessionLocks) Unlock(sessionId string) {
	l.lockFor(sessionId).Unlock()
}
