package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"

	"golang.org/x/sync/singleflight"
)

// QuizCache keeps the owner's last generated quiz in two places: a durable store that
// survives restarts and a tab-scoped store whose entries expire.
type QuizCache struct {
	durable DocumentStore
	tab     DocumentStore
	log     *logger.Logger
	sf      singleflight.Group
}

func NewQuizCache(durable, tab DocumentStore, log *logger.Logger) *QuizCache {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizCache{durable: durable, tab: tab, log: log}
}

// Save writes the quiz to both locations. A failure in either is reported.
func (c *QuizCache) Save(ctx context.Context, owner string, quiz domain.GeneratedQuiz) error {
	key := documentKey(owner, generatedQuizDocument)
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	var errs []error
	if err := c.tab.Put(ctx, key, raw); err != nil {
		errs = append(errs, fmt.Errorf("write tab copy: %w", err))
	}
	if err := c.durable.Put(ctx, key, raw); err != nil {
		errs = append(errs, fmt.Errorf("write durable copy: %w", err))
	}
	return errors.Join(errs...)
}

// Load returns the last generated quiz, preferring the tab-scoped copy. A durable hit
// re-warms the tab copy. Concurrent loads for one owner share a single read.
func (c *QuizCache) Load(ctx context.Context, owner string) (domain.GeneratedQuiz, bool, error) {
	key := documentKey(owner, generatedQuizDocument)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var quiz domain.GeneratedQuiz
		ok, err := c.read(ctx, c.tab, key, &quiz)
		if err != nil {
			c.log.Warn("tab quiz copy unavailable", "key", key, "error", err)
		}
		if ok {
			return &quiz, nil
		}

		var stored domain.GeneratedQuiz
		ok, err = c.read(ctx, c.durable, key, &stored)
		if err != nil {
			return nil, err
		}
		if !ok {
			return (*domain.GeneratedQuiz)(nil), nil
		}
		if raw, err := json.Marshal(stored); err == nil {
			if err := c.tab.Put(ctx, key, raw); err != nil {
				c.log.Warn("failed to re-warm tab quiz copy", "key", key, "error", err)
			}
		}
		return &stored, nil
	})
	if err != nil {
		return domain.GeneratedQuiz{}, false, err
	}
	quiz := v.(*domain.GeneratedQuiz)
	if quiz == nil {
		return domain.GeneratedQuiz{}, false, nil
	}
	return *quiz, true, nil
}

// Clear forgets the quiz in both locations.
func (c *QuizCache) Clear(ctx context.Context, owner string) error {
	key := documentKey(owner, generatedQuizDocument)
	return errors.Join(c.tab.Delete(ctx, key), c.durable.Delete(ctx, key))
}

// read treats an entry without questions like a corrupted one.
func (c *QuizCache) read(ctx context.Context, docs DocumentStore, key string, dst *domain.GeneratedQuiz) (bool, error) {
	ok, err := loadDocument(ctx, docs, c.log, key, dst)
	if err != nil || !ok {
		return false, err
	}
	if len(dst.Questions) == 0 {
		c.log.Warn("cached quiz has no questions, ignoring", "key", key)
		*dst = domain.GeneratedQuiz{}
		return false, nil
	}
	return true, nil
}
