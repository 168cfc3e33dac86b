package app

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/normalize"
)

const (
	demoMaxQuestions   = 6
	demoMinSentenceLen = 20
	demoMinWordLen     = 3
	demoChoices        = 4
	demoBlank          = "_____"
)

var sentenceBreak = regexp.MustCompile(`[.?!]\s+`)

type demoItem struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answerIndex"`
}

// DemoQuiz builds an offline cloze quiz from staged notes: one word blanked per sentence,
// three scrambled distractors. The raw items go through the normalizer like any other payload.
func DemoQuiz(notes []domain.Note, rnd *rand.Rand) ([]domain.Question, error) {
	if len(notes) == 0 {
		return nil, domain.ErrNoNotes
	}
	contents := make([]string, len(notes))
	for i, n := range notes {
		contents[i] = n.Content
	}

	var sentences []string
	for _, s := range sentenceBreak.Split(strings.Join(contents, "\n\n"), -1) {
		if s = strings.TrimSpace(s); utf8.RuneCountInString(s) > demoMinSentenceLen {
			sentences = append(sentences, s)
		}
	}

	var items []demoItem
	for _, s := range sentences[:min(demoMaxQuestions, len(sentences))] {
		var candidates []string
		for _, w := range strings.Fields(s) {
			if utf8.RuneCountInString(w) > demoMinWordLen {
				candidates = append(candidates, w)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		answer := candidates[rnd.IntN(len(candidates))]
		choices := []string{answer}
		for len(choices) < demoChoices {
			fake := scramble(answer, rnd) + strconv.Itoa(rnd.IntN(10))
			if !slices.Contains(choices, fake) {
				choices = append(choices, fake)
			}
		}
		rnd.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
		items = append(items, demoItem{
			Question:    strings.Replace(s, answer, demoBlank, 1),
			Choices:     choices,
			AnswerIndex: slices.Index(choices, answer),
		})
	}

	questions := normalize.Questions(items)
	if len(questions) == 0 {
		return nil, domain.ErrNotEnoughContent
	}
	return questions, nil
}

func scramble(w string, rnd *rand.Rand) string {
	r := []rune(w)
	if len(r) < 4 {
		slices.Reverse(r)
		return string(r)
	}
	rnd.Shuffle(len(r), func(i, j int) { r[i], r[j] = r[j], r[i] })
	return string(r)
}
