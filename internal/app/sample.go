package app

import (
	_ "embed"
	"sync"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/normalize"
)

// SampleNotice is shown when a generated payload could not be used.
const SampleNotice = "Could not read a quiz from the generator response; showing a sample set."

//go:embed sample_quiz.json
var sampleQuizJSON []byte

var sampleQuiz = sync.OnceValues(func() ([]domain.Question, domain.QuizMeta) {
	return normalize.Questions(sampleQuizJSON), normalize.Meta(sampleQuizJSON)
})

// SampleQuestions returns a copy of the built-in quiz used whenever nothing better exists.
func SampleQuestions() []domain.Question {
	qs, _ := sampleQuiz()
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// SampleMeta describes the built-in quiz.
func SampleMeta() domain.QuizMeta {
	_, meta := sampleQuiz()
	return meta
}
