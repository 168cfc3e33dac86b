package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/infra/memory"
)

var testNow = time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC)

// testClock advances by one second per reading so ordering by date is deterministic.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestWorkspaces(docs app.DocumentStore, capacity int) *app.Workspaces {
	return app.NewWorkspacesWithClock(docs, capacity, nil, newTestClock().Now)
}

func newMemoryWorkspaces() (*app.Workspaces, *memory.DocumentStore) {
	docs := memory.NewDocumentStore(0)
	return newTestWorkspaces(docs, 0), docs
}

var errBackendDown = errors.New("backend down")

// failingDocs wraps a store and fails writes to keys with the given suffix.
type failingDocs struct {
	app.DocumentStore
	suffix string
}

func (f *failingDocs) Put(ctx context.Context, key string, data []byte) error {
	if strings.HasSuffix(key, f.suffix) {
		return errBackendDown
	}
	return f.DocumentStore.Put(ctx, key, data)
}
