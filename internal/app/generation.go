package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
	"notes-quiz-service/internal/normalize"

	"github.com/google/uuid"
)

// Generator turns staged notes into a raw quiz payload of any loose shape.
type Generator interface {
	Generate(ctx context.Context, query string, notes []domain.Note) ([]byte, error)
}

// GenerationEvent announces the outcome of one background generation request.
type GenerationEvent struct {
	RequestID string                `json:"requestId"`
	Quiz      *domain.GeneratedQuiz `json:"quiz,omitempty"`
	Err       string                `json:"error,omitempty"`
}

// GenerationService sends staged notes to the generator and caches the normalized quiz.
type GenerationService struct {
	generator  Generator
	workspaces *Workspaces
	cache      *QuizCache
	hub        *Hub[GenerationEvent]
	now        func() time.Time
	newID      func() string
	log        *logger.Logger

	mu     sync.Mutex
	recent map[string][]GenerationEvent // last outcomes per owner, newest last
}

// recentOutcomes bounds how many finished requests per owner Wait can still resolve
// after a newer request replaced the cached quiz.
const recentOutcomes = 8

func NewGenerationService(generator Generator, workspaces *Workspaces, cache *QuizCache, log *logger.Logger) *GenerationService {
	if log == nil {
		log = logger.Nop()
	}
	return &GenerationService{
		generator:  generator,
		workspaces: workspaces,
		cache:      cache,
		hub:        NewHub[GenerationEvent](),
		now:        time.Now,
		newID:      uuid.NewString,
		log:        log,
		recent:     make(map[string][]GenerationEvent),
	}
}

// Generate runs one request synchronously. A payload that normalizes to nothing is
// replaced by the sample set with a notice; a failed call is returned as an error.
func (s *GenerationService) Generate(ctx context.Context, owner, query string) (domain.GeneratedQuiz, error) {
	notes, err := s.stagedNotes(ctx, owner)
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}
	return s.run(ctx, owner, s.newID(), query, notes)
}

// Start validates the request and runs it in the background, returning the request ID to Wait on.
func (s *GenerationService) Start(ctx context.Context, owner, query string) (string, error) {
	notes, err := s.stagedNotes(ctx, owner)
	if err != nil {
		return "", err
	}
	requestID := s.newID()
	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.run(bg, owner, requestID, query, notes); err != nil {
			s.log.Error("background generation failed", "owner", owner, "request", requestID, "error", err)
		}
	}()
	return requestID, nil
}

// Wait blocks until the request finishes or ctx is done. Requests that finished before the
// call are found among the owner's recent outcomes, or in the cache after a restart.
func (s *GenerationService) Wait(ctx context.Context, owner, requestID string) (domain.GeneratedQuiz, error) {
	events, cancel := s.hub.Subscribe(owner)
	defer cancel()

	if ev, ok := s.finished(owner, requestID); ok {
		return outcome(ev)
	}
	if quiz, ok, err := s.cache.Load(ctx, owner); err != nil {
		return domain.GeneratedQuiz{}, err
	} else if ok && quiz.RequestID == requestID {
		return quiz, nil
	}

	for {
		select {
		case <-ctx.Done():
			return domain.GeneratedQuiz{}, ctx.Err()
		case ev, open := <-events:
			if !open {
				return domain.GeneratedQuiz{}, ctx.Err()
			}
			if ev.RequestID != requestID {
				continue
			}
			return outcome(ev)
		}
	}
}

// Current returns the owner's last generated quiz, if any.
func (s *GenerationService) Current(ctx context.Context, owner string) (domain.GeneratedQuiz, bool, error) {
	return s.cache.Load(ctx, owner)
}

func (s *GenerationService) stagedNotes(ctx context.Context, owner string) ([]domain.Note, error) {
	notes, err := s.workspaces.For(owner).Notes.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, domain.ErrNoNotes
	}
	return notes, nil
}

func (s *GenerationService) run(ctx context.Context, owner, requestID, query string, notes []domain.Note) (domain.GeneratedQuiz, error) {
	quiz, err := s.produce(ctx, owner, requestID, query, notes)
	ev := GenerationEvent{RequestID: requestID, Quiz: &quiz}
	if err != nil {
		ev = GenerationEvent{RequestID: requestID, Err: err.Error()}
	}
	s.remember(owner, ev)
	s.hub.Publish(owner, ev)
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}
	return quiz, nil
}

func (s *GenerationService) remember(owner string, ev GenerationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := append(s.recent[owner], ev)
	if len(events) > recentOutcomes {
		events = append([]GenerationEvent(nil), events[len(events)-recentOutcomes:]...)
	}
	s.recent[owner] = events
}

func (s *GenerationService) finished(owner, requestID string) (GenerationEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.recent[owner] {
		if ev.RequestID == requestID {
			return ev, true
		}
	}
	return GenerationEvent{}, false
}

func outcome(ev GenerationEvent) (domain.GeneratedQuiz, error) {
	if ev.Err != "" {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: %s", domain.ErrGenerationFailed, ev.Err)
	}
	return *ev.Quiz, nil
}

func (s *GenerationService) produce(ctx context.Context, owner, requestID, query string, notes []domain.Note) (domain.GeneratedQuiz, error) {
	raw, err := s.generator.Generate(ctx, query, notes)
	if err != nil {
		return domain.GeneratedQuiz{}, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	quiz := domain.GeneratedQuiz{
		RequestID: requestID,
		Query:     query,
		Questions: normalize.Questions(raw),
		Meta:      normalize.Meta(raw),
		CreatedAt: s.now(),
	}
	if len(quiz.Questions) == 0 {
		s.log.Warn("generator payload had no usable questions, using sample set", "owner", owner, "request", requestID, "bytes", len(raw))
		quiz.Questions = SampleQuestions()
		quiz.Meta = SampleMeta()
		quiz.Fallback = true
		quiz.Notice = SampleNotice
	}

	if err := s.cache.Save(ctx, owner, quiz); err != nil {
		return domain.GeneratedQuiz{}, err
	}
	s.log.Info("quiz generated", "owner", owner, "request", requestID, "questions", len(quiz.Questions), "fallback", quiz.Fallback)
	return quiz, nil
}
