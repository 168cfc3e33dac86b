package app_test

import (
	"errors"
	"testing"
	"time"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
)

func twoQuestions() []domain.Question {
	return []domain.Question{
		{Question: "2+2?", Options: []string{"3", "4"}, Answer: 1},
		{Question: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo"}, Answer: 0},
	}
}

func TestSessionRequiresQuestions(t *testing.T) {
	if _, err := app.NewSession("s", "alice", nil); !errors.Is(err, domain.ErrEmptyQuiz) {
		t.Fatalf("expected ErrEmptyQuiz, got %v", err)
	}
}

func TestSessionHappyPath(t *testing.T) {
	s, err := app.NewSessionWithClock("s1", "alice", twoQuestions(), newTestClock().Now)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	state := s.Snapshot()
	if state.CurrentIndex != 0 || state.Selected != nil || state.Finished || state.Prompt != "2+2?" {
		t.Fatalf("unexpected initial state %+v", state)
	}

	if state, err = s.Select(1); err != nil || *state.Selected != 1 {
		t.Fatalf("select: %+v, %v", state, err)
	}
	if _, err := s.Select(0); !errors.Is(err, domain.ErrAlreadySelected) {
		t.Fatalf("expected ErrAlreadySelected, got %v", err)
	}
	state, err = s.ConfirmAndAdvance()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if state.Score != 1 || state.CurrentIndex != 1 || state.Selected != nil || !*state.LastCorrect {
		t.Fatalf("unexpected state after correct answer %+v", state)
	}

	if _, err := s.ConfirmAndAdvance(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if _, err := s.Select(3); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected ErrOptionOutOfRange, got %v", err)
	}
	if _, err := s.Select(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	state, err = s.ConfirmAndAdvance()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !state.Finished || state.Score != 1 || state.Total != 2 || *state.LastCorrect {
		t.Fatalf("expected finished with score 1, got %+v", state)
	}
	if state.Prompt != "" || state.Options != nil {
		t.Fatalf("finished state must not expose a question, got %+v", state)
	}

	if _, err := s.Select(0); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
	if _, err := s.ConfirmAndAdvance(); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
}

func TestSessionRetakeResets(t *testing.T) {
	s, err := app.NewSession("s1", "alice", twoQuestions())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := s.ConfirmAndAdvance(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	state := s.Retake()
	if state.CurrentIndex != 0 || state.Score != 0 || state.Selected != nil || state.Finished || state.LastCorrect != nil {
		t.Fatalf("expected fresh attempt, got %+v", state)
	}
	if state.Prompt != "2+2?" {
		t.Fatalf("retake must reuse the same questions, got %q", state.Prompt)
	}
}

func TestSessionSubscribeReceivesUpdates(t *testing.T) {
	s, err := app.NewSession("s1", "alice", twoQuestions())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ch, cancel := s.Subscribe()
	defer cancel()

	<-ch // initial snapshot

	if _, err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	select {
	case state := <-ch:
		if state.Selected == nil || *state.Selected != 1 {
			t.Fatalf("unexpected broadcast %+v", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}

func TestSessionSlowSubscriberGetsLatest(t *testing.T) {
	s, err := app.NewSession("s1", "alice", []domain.Question{{Question: "q", Options: []string{"a", "b"}, Answer: 0}})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 20; i++ {
		s.Retake()
	}
	if _, err := s.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}

	var last domain.SessionState
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Selected == nil || *last.Selected != 1 {
		t.Fatalf("expected newest state to survive, got %+v", last)
	}
}
