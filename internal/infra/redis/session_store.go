package redis

import (
	"context"
	"sync"
	"time"

	"notes-quiz-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map so the in-process broadcast keeps working; Redis holds a
// liveness marker per attempt. An attempt whose marker expired is dropped, and every
// successful lookup slides the marker forward. Save sweeps attempts with expired markers
// at most once per TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*app.Session
	lastSweep time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) {
	ctx := context.Background()
	if s.sweepDue() {
		s.Sweep(ctx)
	}
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(ctx, s.key(session.ID()), session.Owner(), s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	ctx := context.Background()
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		// Redis unavailable: the local copy is still authoritative.
		return session, true
	}
	if n == 0 {
		s.Delete(id)
		return nil, false
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()
	}
	return session, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

// Sweep drops every local attempt whose marker is gone and returns how many were dropped.
// Nothing is dropped while Redis is unreachable.
func (s *SessionStore) Sweep(ctx context.Context) int {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	if len(ids) == 0 {
		return 0
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0
	}

	dropped := 0
	s.mu.Lock()
	for i, id := range ids {
		if checks[i].Val() == 0 {
			delete(s.sessions, id)
			dropped++
		}
	}
	s.mu.Unlock()
	return dropped
}

// Len reports how many attempts are held locally.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepDue() bool {
	if s.ttl <= 0 {
		return false
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) < s.ttl {
		return false
	}
	s.lastSweep = now
	return true
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
