package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
)

// DocumentStore keeps documents in process memory. With a positive TTL every write
// expires after ttl plus up to 10% jitter, which makes it usable as a tab-scoped store.
type DocumentStore struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu   sync.RWMutex
	docs map[string]storedDocument
}

type storedDocument struct {
	data      []byte
	expiresAt time.Time // zero means never
}

func NewDocumentStore(ttl time.Duration) *DocumentStore {
	return NewDocumentStoreWithClock(ttl, time.Now)
}

// NewDocumentStoreWithClock allows deterministic expiry in tests.
func NewDocumentStoreWithClock(ttl time.Duration, clock func() time.Time) *DocumentStore {
	return &DocumentStore{
		ttl:   ttl,
		clock: clock,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		docs:  make(map[string]storedDocument),
	}
}

func (s *DocumentStore) Get(_ context.Context, key string) ([]byte, error) {
	now := s.clock()

	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	if !doc.expiresAt.IsZero() && !doc.expiresAt.After(now) {
		s.mu.Lock()
		if cur, ok := s.docs[key]; ok && cur.expiresAt.Equal(doc.expiresAt) {
			delete(s.docs, key)
		}
		s.mu.Unlock()
		return nil, domain.ErrDocumentNotFound
	}
	return append([]byte(nil), doc.data...), nil
}

func (s *DocumentStore) Put(_ context.Context, key string, data []byte) error {
	doc := storedDocument{data: append([]byte(nil), data...)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl := s.ttlWithJitterLocked(); ttl > 0 {
		doc.expiresAt = s.clock().Add(ttl)
	}
	s.docs[key] = doc
	return nil
}

func (s *DocumentStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

// ttlWithJitterLocked must run under s.mu; rand.Rand is not safe for concurrent use.
func (s *DocumentStore) ttlWithJitterLocked() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
