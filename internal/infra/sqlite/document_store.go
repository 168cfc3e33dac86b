package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"notes-quiz-service/internal/domain"

	_ "modernc.org/sqlite"
)

// DocumentStore is the embedded durable store: one SQLite file, one row per document.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(dbPath string) (*DocumentStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)
	store := &DocumentStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *DocumentStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  key TEXT PRIMARY KEY,
  data BLOB NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return raw, nil
}

func (s *DocumentStore) Put(ctx context.Context, key string, data []byte) error {
	const stmt = `
INSERT INTO documents (key, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  data=excluded.data,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, data, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Close() error {
	return s.db.Close()
}
