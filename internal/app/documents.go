package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

// DocumentStore persists whole JSON documents by key (memory, Redis, Postgres, SQLite).
// Every write replaces the entire document; concurrent writers to one key are last-write-wins.
type DocumentStore interface {
	// Get returns domain.ErrDocumentNotFound when the key holds nothing.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Storage keys, one document per owner each.
const (
	profileDocument       = "profile_v2"
	leaderboardDocument   = "leaderboard_local_v2"
	settingsDocument      = "leaderboard_settings_v1"
	notesDocument         = "notes_quiz_app_v1"
	generatedQuizDocument = "generated_quiz_v1"
)

func documentKey(owner, name string) string {
	return owner + ":" + name
}

// loadDocument decodes the document at key over the current value of dst and reports whether
// it was usable. A missing document is not an error. A corrupted one is logged and treated as
// missing so the caller falls back to defaults and overwrites it on the next write; dst is only
// assigned when the whole document decodes.
func loadDocument[T any](ctx context.Context, docs DocumentStore, log *logger.Logger, key string, dst *T) (bool, error) {
	raw, err := docs.Get(ctx, key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	decoded := *dst
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Warn("corrupted document, falling back to defaults", "key", key, "error", err)
		return false, nil
	}
	*dst = decoded
	return true, nil
}

func saveDocument(ctx context.Context, docs DocumentStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := docs.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
