package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"notes-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const documentPrefix = "notesquiz:doc:"

// DocumentStore keeps whole JSON documents as Redis strings: SET notesquiz:doc:{key} {json}.
// A positive TTL (plus up to 10% jitter) turns it into the tab-scoped store; zero keeps documents forever.
type DocumentStore struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewDocumentStore(client *redis.Client, ttl time.Duration) *DocumentStore {
	return &DocumentStore{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, documentPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, documentPrefix+key, data, s.ttlWithJitter()).Err()
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, documentPrefix+key).Err()
}

func (s *DocumentStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
