package chat

import "sync"

// sessionLocks serializes turns per session within this process.
// Concurrent requests on the same session wait for each other instead
// of racing on the state row; across processes the state update remains
// last-writer-wins.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the session and returns its unlock func.
func (s *sessionLocks) Lock(sessionID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
