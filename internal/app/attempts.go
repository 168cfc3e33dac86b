package app

import (
	"context"
	"math"
	"time"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"

	"github.com/google/uuid"
)

// Quiz sources an attempt can be started from.
const (
	SourceAuto      = ""
	SourceGenerated = "generated"
	SourceSample    = "sample"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// AttemptService contains the quiz-taking use cases.
type AttemptService struct {
	sessions   SessionRepository
	cache      *QuizCache
	workspaces *Workspaces
	now        func() time.Time
	newID      func() string
	log        *logger.Logger
}

func NewAttemptService(sessions SessionRepository, cache *QuizCache, workspaces *Workspaces, log *logger.Logger) *AttemptService {
	return NewAttemptServiceWithClock(sessions, cache, workspaces, log, time.Now)
}

// NewAttemptServiceWithClock is test-only for deterministic durations.
func NewAttemptServiceWithClock(sessions SessionRepository, cache *QuizCache, workspaces *Workspaces, log *logger.Logger, now func() time.Time) *AttemptService {
	if log == nil {
		log = logger.Nop()
	}
	return &AttemptService{
		sessions:   sessions,
		cache:      cache,
		workspaces: workspaces,
		now:        now,
		newID:      uuid.NewString,
		log:        log,
	}
}

// Start opens a new attempt for owner. The automatic source uses the cached generated
// quiz when there is one and the sample set otherwise.
func (s *AttemptService) Start(ctx context.Context, owner, source string) (domain.SessionState, error) {
	questions, meta, err := s.questionsFor(ctx, owner, source)
	if err != nil {
		return domain.SessionState{}, err
	}
	session, err := NewSessionWithClock(s.newID(), owner, questions, s.now)
	if err != nil {
		return domain.SessionState{}, err
	}
	session.meta = meta
	s.sessions.Save(session)
	s.log.Debug("attempt started", "owner", owner, "attempt", session.ID(), "questions", len(questions))
	return session.Snapshot(), nil
}

func (s *AttemptService) questionsFor(ctx context.Context, owner, source string) ([]domain.Question, domain.QuizMeta, error) {
	switch source {
	case SourceSample:
		return SampleQuestions(), SampleMeta(), nil
	case SourceGenerated, SourceAuto:
		quiz, ok, err := s.cache.Load(ctx, owner)
		if err != nil {
			return nil, domain.QuizMeta{}, err
		}
		if ok {
			return quiz.Questions, quiz.Meta, nil
		}
		if source == SourceGenerated {
			return nil, domain.QuizMeta{}, domain.ErrNoGeneratedQuiz
		}
		return SampleQuestions(), SampleMeta(), nil
	default:
		return nil, domain.QuizMeta{}, domain.ErrUnknownQuizSource
	}
}

// State returns the current snapshot of an owner's attempt.
func (s *AttemptService) State(_ context.Context, owner, id string) (domain.SessionState, error) {
	session, err := s.session(owner, id)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Snapshot(), nil
}

func (s *AttemptService) Select(_ context.Context, owner, id string, option int) (domain.SessionState, error) {
	session, err := s.session(owner, id)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Select(option)
}

func (s *AttemptService) Confirm(_ context.Context, owner, id string) (domain.SessionState, error) {
	session, err := s.session(owner, id)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.ConfirmAndAdvance()
}

func (s *AttemptService) Retake(_ context.Context, owner, id string) (domain.SessionState, error) {
	session, err := s.session(owner, id)
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.Retake(), nil
}

// Save records a finished attempt on the owner's leaderboard, once per completion.
func (s *AttemptService) Save(ctx context.Context, owner, id, name string, identity *domain.Identity) ([]domain.LeaderboardEntry, error) {
	session, err := s.session(owner, id)
	if err != nil {
		return nil, err
	}
	score, total, elapsed, err := session.claimResult()
	if err != nil {
		return nil, err
	}
	seconds := math.Round(elapsed.Seconds())
	in := domain.ScoreInput{
		Name:            name,
		Score:           float64(score),
		Total:           float64(total),
		Difficulty:      session.meta.Difficulty,
		DurationSeconds: &seconds,
	}
	entries, err := s.workspaces.For(owner).Leaderboard.AddScore(ctx, in, identity)
	if err != nil {
		session.releaseResult()
		return nil, err
	}
	s.log.Info("attempt saved", "owner", owner, "attempt", id, "score", score, "total", total)
	return entries, nil
}

// Subscribe streams an attempt's state changes.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, owner, id string) (<-chan domain.SessionState, func(), error) {
	session, err := s.session(owner, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// End drops the attempt.
func (s *AttemptService) End(_ context.Context, owner, id string) {
	if _, err := s.session(owner, id); err == nil {
		s.sessions.Delete(id)
	}
}

// session hides other owners' attempts behind ErrSessionNotFound.
func (s *AttemptService) session(owner, id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok || session.Owner() != owner {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
