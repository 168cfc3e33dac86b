// Package normalize converts loosely shaped quiz payloads into canonical questions.
//
// Payloads come from a generation backend that is not trusted to follow any schema:
// raw arrays, objects wrapping a "questions" array, objects whose "message" field holds
// fenced or Python-style JSON text, or plain strings. Normalization never fails; an
// empty result means no usable quiz could be extracted.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"notes-quiz-service/internal/domain"

	"github.com/tidwall/gjson"
)

var (
	questionKeys    = []string{"question", "questionText", "prompt"}
	optionListKeys  = []string{"options", "answerOptions", "choices"}
	optionTextKeys  = []string{"answerText", "text", "label"}
	correctFlagKeys = []string{"isCorrect", "correct", "is_answer", "isRight"}
	correctTextKeys = []string{"correctAnswer", "correct", "answerText"}
	answerIndexKeys = []string{"answer", "answerIndex"}
)

// Questions normalizes payload into an ordered question list.
// Items that end up with no options are dropped; order of the rest is preserved.
func Questions(payload any) []domain.Question {
	root, ok := toResult(payload)
	if !ok {
		return nil
	}
	items := unwrap(root, 0)
	out := make([]domain.Question, 0, len(items))
	for i, item := range items {
		if q, ok := normalizeItem(item, i); ok {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Meta extracts passthrough quiz metadata from wrapped-object payloads.
func Meta(payload any) domain.QuizMeta {
	root, ok := toResult(payload)
	if !ok {
		return domain.QuizMeta{}
	}
	return metaFrom(root, 0)
}

func metaFrom(v gjson.Result, depth int) domain.QuizMeta {
	if depth > maxDepth {
		return domain.QuizMeta{}
	}
	switch {
	case v.IsObject():
		meta := domain.QuizMeta{
			Title:      firstString(v, "title"),
			Difficulty: firstString(v, "difficulty"),
		}
		if d := v.Get("durationSeconds"); d.Type == gjson.Number {
			secs := int(math.Round(d.Float()))
			meta.DurationSeconds = &secs
		}
		if meta != (domain.QuizMeta{}) {
			return meta
		}
		msg := v.Get("message")
		if msg.Type == gjson.String {
			if inner, ok := recoverString(msg.Str); ok {
				return metaFrom(inner, depth+1)
			}
			return domain.QuizMeta{}
		}
		if msg.IsObject() {
			return metaFrom(msg, depth+1)
		}
	case v.Type == gjson.String:
		if inner, ok := recoverString(v.Str); ok && inner.Type != gjson.String {
			return metaFrom(inner, depth+1)
		}
	}
	return domain.QuizMeta{}
}

type option struct {
	text string
	raw  gjson.Result
}

func normalizeItem(item gjson.Result, index int) (domain.Question, bool) {
	if !item.IsObject() {
		return domain.Question{}, false
	}
	opts := extractOptions(item)
	if len(opts) == 0 {
		return domain.Question{}, false
	}

	text := firstString(item, questionKeys...)
	if text == "" {
		text = "Question " + strconv.Itoa(index+1)
	}

	texts := make([]string, len(opts))
	for i, o := range opts {
		texts[i] = o.text
	}
	return domain.Question{
		Question: text,
		Options:  texts,
		Answer:   resolveAnswer(item, opts),
	}, true
}

func extractOptions(item gjson.Result) []option {
	var list gjson.Result
	for _, key := range optionListKeys {
		if v := item.Get(key); v.IsArray() {
			list = v
			break
		}
	}
	if !list.Exists() {
		return nil
	}
	var out []option
	list.ForEach(func(_, value gjson.Result) bool {
		if text := optionText(value); text != "" {
			out = append(out, option{text: text, raw: value})
		}
		return true
	})
	return out
}

func optionText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.JSON:
		if v.IsObject() {
			if text := firstString(v, optionTextKeys...); text != "" {
				return text
			}
			// Declared but blank text means an empty option, not an opaque object.
			for _, key := range optionTextKeys {
				if v.Get(key).Exists() {
					return ""
				}
			}
		}
		return strings.TrimSpace(v.Raw)
	default:
		return strings.TrimSpace(v.String())
	}
}

// resolveAnswer applies, first match wins: explicit per-option flag, case-insensitive text
// match against an item-level answer field, in-range numeric index, then zero.
func resolveAnswer(item gjson.Result, opts []option) int {
	for i, o := range opts {
		if !o.raw.IsObject() {
			continue
		}
		for _, key := range correctFlagKeys {
			if o.raw.Get(key).Type == gjson.True {
				return i
			}
		}
	}

	if target := firstString(item, correctTextKeys...); target != "" {
		for i, o := range opts {
			if strings.EqualFold(o.text, target) {
				return i
			}
		}
	}

	for _, key := range answerIndexKeys {
		v := item.Get(key)
		if v.Type != gjson.Number {
			continue
		}
		f := v.Float()
		if f != math.Trunc(f) {
			continue
		}
		if idx := int(f); idx >= 0 && idx < len(opts) {
			return idx
		}
	}
	return 0
}

func firstString(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		if s := v.Get(key); s.Type == gjson.String {
			if trimmed := strings.TrimSpace(s.Str); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
