package app

import (
	"time"

	"notes-quiz-service/internal/logger"

	"github.com/google/uuid"
)

// DefaultLeaderboardCapacity bounds the local leaderboard.
const DefaultLeaderboardCapacity = 100

// Workspace bundles the stores of a single owner (one browser context).
type Workspace struct {
	Owner       string
	Profile     *ProfileStore
	Leaderboard *LeaderboardStore
	Notes       *NotesStore
}

// Workspaces builds owner-scoped stores over one shared document store.
type Workspaces struct {
	docs     DocumentStore
	log      *logger.Logger
	capacity int
	now      func() time.Time
	newID    func() string
}

func NewWorkspaces(docs DocumentStore, capacity int, log *logger.Logger) *Workspaces {
	return NewWorkspacesWithClock(docs, capacity, log, time.Now)
}

// NewWorkspacesWithClock allows deterministic timestamps in tests.
func NewWorkspacesWithClock(docs DocumentStore, capacity int, log *logger.Logger, now func() time.Time) *Workspaces {
	if capacity <= 0 {
		capacity = DefaultLeaderboardCapacity
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Workspaces{
		docs:     docs,
		log:      log,
		capacity: capacity,
		now:      now,
		newID:    uuid.NewString,
	}
}

// For returns the stores for owner. Stores hold no state besides their keys, so this is cheap.
func (w *Workspaces) For(owner string) *Workspace {
	log := w.log.With("owner", owner)
	profile := &ProfileStore{
		docs: w.docs,
		key:  documentKey(owner, profileDocument),
		now:  w.now,
		log:  log,
	}
	return &Workspace{
		Owner:   owner,
		Profile: profile,
		Leaderboard: &LeaderboardStore{
			docs:        w.docs,
			key:         documentKey(owner, leaderboardDocument),
			settingsKey: documentKey(owner, settingsDocument),
			profile:     profile,
			capacity:    w.capacity,
			now:         w.now,
			newID:       w.newID,
			log:         log,
		},
		Notes: &NotesStore{
			docs:  w.docs,
			key:   documentKey(owner, notesDocument),
			now:   w.now,
			newID: w.newID,
			log:   log,
		},
	}
}
