package memory

import (
	"log"
	"sync"
	"time"

	"quizforge/internal/app"
)

// SessionStore is the in-memory implementation of app.SessionStore. With a
// positive TTL it also runs an idle-expiry sweeper that reclaims sessions
// the client abandoned without calling end; expiry is a config extension,
// not a core guarantee.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time
	stop  chan struct{}
	once  sync.Once

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore builds a store without idle expiry.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		stop:     make(chan struct{}),
		sessions: make(map[string]*app.Session),
	}
}

// NewExpiringSessionStore builds a store that drops sessions idle for longer
// than ttl, checked every sweepEvery. Close stops the sweeper.
func NewExpiringSessionStore(ttl, sweepEvery time.Duration) *SessionStore {
	s := NewSessionStore()
	s.ttl = ttl
	if ttl > 0 {
		go s.sweepLoop(sweepEvery)
	}
	return s
}

func (s *SessionStore) Put(id string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = session
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Remove(id string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return session, ok
}

// Len reports the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reset drops every session; tests use it between scenarios.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*app.Session)
}

// Close stops the sweeper, if one is running.
func (s *SessionStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *SessionStore) sweepLoop(every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweepOnce(s.clock()); n > 0 {
				log.Printf("session store: reclaimed %d idle sessions", n)
			}
		case <-s.stop:
			return
		}
	}
}

// sweepOnce removes sessions idle since before now-ttl and returns how many
// were dropped.
func (s *SessionStore) sweepOnce(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
