package postgres

import (
	"context"
	"errors"
	"fmt"

	"notes-quiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DocumentStore keeps whole JSON documents in the documents table (JSONB, one row per key).
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE key=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return raw, nil
}

// Put upserts the document; the last writer wins.
func (s *DocumentStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (key, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE key=$1`, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
