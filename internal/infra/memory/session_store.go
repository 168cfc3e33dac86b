package memory

import (
	"sync"
	"time"

	"notes-quiz-service/internal/app"
)

// DefaultSessionIdle is how long an untouched attempt is kept.
const DefaultSessionIdle = 2 * time.Hour

// SessionStore is an in-memory implementation of app.SessionRepository.
// Attempts not read or saved for longer than the idle limit are swept on the next Save.
type SessionStore struct {
	idle  time.Duration
	clock func() time.Time

	mu        sync.Mutex
	sessions  map[string]*app.Session
	lastSeen  map[string]time.Time
	lastSweep time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(DefaultSessionIdle, time.Now)
}

// NewSessionStoreWithClock sets the idle limit; zero or less keeps attempts until deleted.
func NewSessionStoreWithClock(idle time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		idle:     idle,
		clock:    clock,
		sessions: make(map[string]*app.Session),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *SessionStore) Save(session *app.Session) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.sessions[session.ID()] = session
	s.lastSeen[session.ID()] = now
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expiredLocked(id, now) {
		s.deleteLocked(id)
		return nil, false
	}
	s.lastSeen[id] = now
	return session, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	s.deleteLocked(id)
	s.mu.Unlock()
}

// Len reports how many attempts are held.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked runs at most once per idle period, so Save stays cheap.
func (s *SessionStore) sweepLocked(now time.Time) {
	if s.idle <= 0 || now.Sub(s.lastSweep) < s.idle {
		return
	}
	s.lastSweep = now
	for id := range s.sessions {
		if s.expiredLocked(id, now) {
			s.deleteLocked(id)
		}
	}
}

func (s *SessionStore) expiredLocked(id string, now time.Time) bool {
	return s.idle > 0 && now.Sub(s.lastSeen[id]) > s.idle
}

func (s *SessionStore) deleteLocked(id string) {
	delete(s.sessions, id)
	delete(s.lastSeen, id)
}
