package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"notes-quiz-service/internal/domain"

	"github.com/tidwall/gjson"
)

func TestQuestionsFromFencedPythonMessage(t *testing.T) {
	payload := map[string]any{
		"message": "```json\n[{'question':'2+2?','options':['3','4'],'answer':1}]\n```",
	}

	got := Questions(payload)
	want := []domain.Question{{Question: "2+2?", Options: []string{"3", "4"}, Answer: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFencedSingleQuotedStringMatchesWellFormedValue(t *testing.T) {
	wellFormed := []any{
		map[string]any{"question": "Capital of France?", "options": []any{"Berlin", "Paris"}, "correctAnswer": "paris"},
		map[string]any{"prompt": "Largest planet?", "choices": []any{"Mars", "Jupiter", "Earth"}, "answerIndex": 1},
	}
	messy := "```json\n[{'question': 'Capital of France?', 'options': ['Berlin', 'Paris'], 'correctAnswer': 'paris'}," +
		" {'prompt': 'Largest planet?', 'choices': ['Mars', 'Jupiter', 'Earth'], 'answerIndex': 1}]\n```"

	a := Questions(wellFormed)
	b := Questions(messy)
	if len(a) != 2 {
		t.Fatalf("expected 2 questions, got %+v", a)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results\nwell-formed: %+v\nmessy:       %+v", a, b)
	}
	if a[0].Answer != 1 || a[1].Answer != 1 {
		t.Fatalf("unexpected answers: %+v", a)
	}
}

func TestQuestionsDropsItemsWithoutOptions(t *testing.T) {
	raw := `[
		{"question": "keep 1", "options": ["a", "b"]},
		{"question": "no options"},
		{"question": "empty options", "options": []},
		{"question": "blank options", "options": ["", "   ", null]},
		"not an object",
		{"question": "keep 2", "choices": ["x"]}
	]`

	got := Questions([]byte(raw))
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving questions, got %d: %+v", len(got), got)
	}
	if got[0].Question != "keep 1" || got[1].Question != "keep 2" {
		t.Fatalf("expected original order preserved, got %+v", got)
	}
}

func TestQuestionsSynthesizesMissingText(t *testing.T) {
	got := Questions(`[{"options":["a"]},{"questionText":"  ","options":["b"]}]`)
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %+v", got)
	}
	if got[0].Question != "Question 1" || got[1].Question != "Question 2" {
		t.Fatalf("expected synthesized titles, got %q and %q", got[0].Question, got[1].Question)
	}
}

func TestResolveAnswerPriority(t *testing.T) {
	tests := []struct {
		name string
		item string
		want int
	}{
		{
			name: "flag beats text and index",
			item: `{"options":[{"text":"a"},{"text":"b","isRight":true},{"text":"c"}],"correctAnswer":"c","answer":0}`,
			want: 1,
		},
		{
			name: "text beats index",
			item: `{"options":["a","b","c"],"correct":"C","answer":0}`,
			want: 2,
		},
		{
			name: "index when no flag or text match",
			item: `{"options":["a","b","c"],"correctAnswer":"zzz","answer":2}`,
			want: 2,
		},
		{
			name: "answerIndex fallback",
			item: `{"choices":["a","b"],"answerIndex":1}`,
			want: 1,
		},
		{
			name: "out of range index defaults to zero",
			item: `{"options":["a","b"],"answer":5}`,
			want: 0,
		},
		{
			name: "negative index defaults to zero",
			item: `{"options":["a","b"],"answer":-1}`,
			want: 0,
		},
		{
			name: "fractional index ignored",
			item: `{"options":["a","b"],"answer":1.5}`,
			want: 0,
		},
		{
			name: "string flag is not a flag",
			item: `{"options":[{"text":"a"},{"text":"b","correct":"true"}]}`,
			want: 0,
		},
		{
			name: "is_answer flag",
			item: `{"answerOptions":[{"answerText":"a"},{"answerText":"b"},{"answerText":"c","is_answer":true}]}`,
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Questions("[" + tt.item + "]")
			if len(got) != 1 {
				t.Fatalf("expected one question, got %+v", got)
			}
			if got[0].Answer != tt.want {
				t.Fatalf("expected answer %d, got %d", tt.want, got[0].Answer)
			}
		})
	}
}

func TestOptionObjectsUseTextFields(t *testing.T) {
	got := Questions(`{"questions":[{"question":"q","options":[{"answerText":"A"},{"label":"B"},{"text":"C"},{"value":1},7,true]}]}`)
	if len(got) != 1 {
		t.Fatalf("expected one question, got %+v", got)
	}
	want := []string{"A", "B", "C", `{"value":1}`, "7", "true"}
	if !reflect.DeepEqual(got[0].Options, want) {
		t.Fatalf("expected options %v, got %v", want, got[0].Options)
	}
}

func TestSampleShapeFromAnswerOptions(t *testing.T) {
	got := Questions(`[{"questionText":"What is 8 * 9?","answerOptions":[
		{"answerText":"64","isCorrect":false},
		{"answerText":"72","isCorrect":true},
		{"answerText":"81","isCorrect":false}]}]`)
	want := []domain.Question{{Question: "What is 8 * 9?", Options: []string{"64", "72", "81"}, Answer: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestQuestionsUnwrapsNestedShapes(t *testing.T) {
	inner := `[{"question":"q","options":["a","b"],"answer":1}]`
	encoded, _ := json.Marshal(inner)
	doubleEncoded, _ := json.Marshal(string(encoded))

	tests := []struct {
		name    string
		payload any
	}{
		{name: "raw array bytes", payload: []byte(inner)},
		{name: "questions wrapper", payload: json.RawMessage(`{"questions":` + inner + `}`)},
		{name: "message object", payload: map[string]any{"message": map[string]any{"questions": json.RawMessage(inner)}}},
		{name: "message string", payload: map[string]any{"message": inner}},
		{name: "json encoded string", payload: encoded},
		{name: "double encoded string", payload: doubleEncoded},
		{name: "prose around array", payload: "Sure! Here is your quiz:\n" + inner + "\nGood luck."},
		{name: "message prose with python quotes", payload: map[string]any{"message": "Here you go: [{'question':'q','options':['a','b'],'answer':1}] enjoy"}},
	}

	want := []domain.Question{{Question: "q", Options: []string{"a", "b"}, Answer: 1}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Questions(tt.payload)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestQuestionsDegradesToEmpty(t *testing.T) {
	payloads := []any{
		nil,
		"",
		"no quiz here",
		"```json\n{not json at all\n```",
		map[string]any{"message": "I could not generate a quiz."},
		map[string]any{"status": "ok"},
		42,
		[]byte(`{"questions": "not an array"}`),
		`[1, 2, 3]`,
	}
	for _, p := range payloads {
		if got := Questions(p); len(got) != 0 {
			t.Fatalf("expected no questions for %#v, got %+v", p, got)
		}
	}
}

func TestQuestionsAnswerAlwaysInRange(t *testing.T) {
	raw := `[
		{"options":["a"],"answer":3},
		{"options":["","b"],"answer":1},
		{"options":[{"text":""},{"text":"b","isCorrect":false},{"text":"c"}],"answerIndex":2},
		{"options":[null,"x","y"],"correctAnswer":"Y"}
	]`
	got := Questions(raw)
	if len(got) != 4 {
		t.Fatalf("expected 4 questions, got %+v", got)
	}
	for i, q := range got {
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			t.Fatalf("question %d answer %d out of range for %v", i, q.Answer, q.Options)
		}
	}
	if got[3].Answer != 1 {
		t.Fatalf("expected text match against surviving options, got %d", got[3].Answer)
	}
}

func TestMetaFromWrappedPayload(t *testing.T) {
	meta := Meta(map[string]any{
		"message": `{"title":"Biology","difficulty":"Hard","durationSeconds":300,"questions":[]}`,
	})
	if meta.Title != "Biology" || meta.Difficulty != "Hard" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 300 {
		t.Fatalf("expected duration 300, got %v", meta.DurationSeconds)
	}

	if got := Meta(`[{"question":"q","options":["a"]}]`); got != (domain.QuizMeta{}) {
		t.Fatalf("expected empty meta for bare array, got %+v", got)
	}
}

func TestStrategiesApplyIndependently(t *testing.T) {
	tests := []struct {
		name     string
		try      func(gjson.Result, int) ([]gjson.Result, bool)
		input    gjson.Result
		applies  bool
		numItems int
	}{
		{name: "array on array", try: fromArray, input: gjson.Parse(`[1,2]`), applies: true, numItems: 2},
		{name: "array on object", try: fromArray, input: gjson.Parse(`{"a":1}`), applies: false},
		{name: "questions on wrapper", try: fromQuestionsField, input: gjson.Parse(`{"questions":[{}]}`), applies: true, numItems: 1},
		{name: "questions on non-array field", try: fromQuestionsField, input: gjson.Parse(`{"questions":"x"}`), applies: false},
		{name: "message unparseable", try: fromMessageField, input: gjson.Parse(`{"message":"nope"}`), applies: true, numItems: 0},
		{name: "message missing", try: fromMessageField, input: gjson.Parse(`{"other":1}`), applies: false},
		{name: "string on object", try: fromString, input: gjson.Parse(`{}`), applies: false},
		{name: "string with array", try: fromString, input: gjson.Result{Type: gjson.String, Str: "[1]"}, applies: true, numItems: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := tt.try(tt.input, 0)
			if ok != tt.applies {
				t.Fatalf("expected applies=%v, got %v", tt.applies, ok)
			}
			if len(items) != tt.numItems {
				t.Fatalf("expected %d items, got %d", tt.numItems, len(items))
			}
		})
	}
}

func TestRecoverString(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{in: `{"a":1}`, ok: true},
		{in: "```\n{'a': 1}\n```", ok: true},
		{in: "text [\"x\", \"y\"] more text", ok: true},
		{in: "```python\n[{'a': 'b'}]```", ok: true},
		{in: "{broken", ok: false},
		{in: "   ", ok: false},
	}
	for _, tt := range tests {
		_, ok := recoverString(tt.in)
		if ok != tt.ok {
			t.Fatalf("recoverString(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
	}
}
