package app

import (
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
)

// Session drives one quiz attempt from the first question to completion.
// The question list never changes after the session starts.
type Session struct {
	id        string
	owner     string
	questions []domain.Question
	meta      domain.QuizMeta
	now       func() time.Time

	mu          sync.Mutex
	startedAt   time.Time
	updatedAt   time.Time
	current     int
	score       int
	selected    *int
	lastCorrect *bool
	finished    bool
	saved       bool
	updates     broadcaster[domain.SessionState]
}

// NewSession starts an attempt; it needs at least one question.
func NewSession(id, owner string, questions []domain.Question) (*Session, error) {
	return NewSessionWithClock(id, owner, questions, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id, owner string, questions []domain.Question, now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}
	started := now()
	return &Session{
		id:        id,
		owner:     owner,
		questions: questions,
		now:       now,
		startedAt: started,
		updatedAt: started,
	}, nil
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Owner() string { return s.owner }

// Select picks an option for the current question; only one pick per question.
func (s *Session) Select(option int) (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.SessionState{}, domain.ErrSessionFinished
	}
	if s.selected != nil {
		return domain.SessionState{}, domain.ErrAlreadySelected
	}
	if option < 0 || option >= len(s.questions[s.current].Options) {
		return domain.SessionState{}, domain.ErrOptionOutOfRange
	}
	s.selected = &option
	s.lastCorrect = nil
	return s.broadcastLocked(), nil
}

// ConfirmAndAdvance scores the selection and moves on, finishing after the last question.
func (s *Session) ConfirmAndAdvance() (domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.SessionState{}, domain.ErrSessionFinished
	}
	if s.selected == nil {
		return domain.SessionState{}, domain.ErrNoSelection
	}
	correct := *s.selected == s.questions[s.current].Answer
	if correct {
		s.score++
	}
	s.lastCorrect = &correct
	s.selected = nil
	s.current++
	if s.current >= len(s.questions) {
		s.finished = true
	}
	return s.broadcastLocked(), nil
}

// Retake resets to the first question against the same question list.
func (s *Session) Retake() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = 0
	s.score = 0
	s.selected = nil
	s.lastCorrect = nil
	s.finished = false
	s.saved = false
	s.startedAt = s.now()
	return s.broadcastLocked()
}

func (s *Session) Snapshot() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe streams state changes, starting with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionState, func()) {
	s.mu.Lock()
	initial := s.snapshotLocked()
	s.mu.Unlock()
	return s.updates.subscribe(&initial)
}

// claimResult marks a finished attempt as saved and returns what to record.
func (s *Session) claimResult() (score, total int, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return 0, 0, 0, domain.ErrSessionNotFinished
	}
	if s.saved {
		return 0, 0, 0, domain.ErrAlreadySaved
	}
	s.saved = true
	return s.score, len(s.questions), s.updatedAt.Sub(s.startedAt), nil
}

func (s *Session) releaseResult() {
	s.mu.Lock()
	s.saved = false
	s.mu.Unlock()
}

func (s *Session) broadcastLocked() domain.SessionState {
	s.updatedAt = s.now()
	state := s.snapshotLocked()
	s.updates.publish(state)
	return state
}

func (s *Session) snapshotLocked() domain.SessionState {
	state := domain.SessionState{
		ID:           s.id,
		CurrentIndex: s.current,
		Total:        len(s.questions),
		Score:        s.score,
		Finished:     s.finished,
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
	if s.selected != nil {
		sel := *s.selected
		state.Selected = &sel
	}
	if s.lastCorrect != nil {
		lc := *s.lastCorrect
		state.LastCorrect = &lc
	}
	if !s.finished {
		q := s.questions[s.current]
		state.Prompt = q.Question
		state.Options = append([]string(nil), q.Options...)
	}
	return state
}
