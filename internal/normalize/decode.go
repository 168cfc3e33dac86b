package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// maxDepth bounds message-in-a-string nesting. Real payloads nest at most twice.
const maxDepth = 4

var (
	fencePattern   = regexp.MustCompile("```[A-Za-z0-9_-]*")
	bracketPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// strategy locates the raw question list inside one payload shape.
// applies reports whether the shape matched; a matching strategy's result is final even when empty.
type strategy struct {
	name string
	try  func(v gjson.Result, depth int) (items []gjson.Result, applies bool)
}

var strategies []strategy

func init() {
	strategies = []strategy{
		{name: "array", try: fromArray},
		{name: "questions", try: fromQuestionsField},
		{name: "message", try: fromMessageField},
		{name: "string", try: fromString},
	}
}

// unwrap runs the strategies in order and returns the first applicable result.
func unwrap(v gjson.Result, depth int) []gjson.Result {
	if depth > maxDepth || !v.Exists() {
		return nil
	}
	for _, s := range strategies {
		if items, ok := s.try(v, depth); ok {
			return items
		}
	}
	return nil
}

func fromArray(v gjson.Result, _ int) ([]gjson.Result, bool) {
	if !v.IsArray() {
		return nil, false
	}
	return v.Array(), true
}

func fromQuestionsField(v gjson.Result, _ int) ([]gjson.Result, bool) {
	if !v.IsObject() {
		return nil, false
	}
	questions := v.Get("questions")
	if !questions.IsArray() {
		return nil, false
	}
	return questions.Array(), true
}

func fromMessageField(v gjson.Result, depth int) ([]gjson.Result, bool) {
	if !v.IsObject() {
		return nil, false
	}
	msg := v.Get("message")
	if !msg.Exists() {
		return nil, false
	}
	if msg.Type == gjson.String {
		inner, ok := recoverString(msg.Str)
		if !ok {
			return nil, true
		}
		return unwrap(inner, depth+1), true
	}
	return unwrap(msg, depth+1), true
}

func fromString(v gjson.Result, depth int) ([]gjson.Result, bool) {
	if v.Type != gjson.String {
		return nil, false
	}
	inner, ok := recoverString(v.Str)
	if !ok {
		return nil, true
	}
	// A string that parses back to the same string would loop forever.
	if inner.Type == gjson.String && inner.Str == v.Str {
		return nil, true
	}
	return unwrap(inner, depth+1), true
}

// recoverString turns model output into structure: strip code fences, parse strictly,
// retry with single quotes swapped for double quotes, then retry both on the outermost
// bracketed span.
func recoverString(s string) (gjson.Result, bool) {
	s = stripFences(s)
	if s == "" {
		return gjson.Result{}, false
	}
	if r, ok := parseLoose(s); ok {
		return r, true
	}
	if span := bracketPattern.FindString(s); span != "" {
		if r, ok := parseLoose(span); ok {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func parseLoose(s string) (gjson.Result, bool) {
	if gjson.Valid(s) {
		return gjson.Parse(s), true
	}
	swapped := strings.ReplaceAll(s, "'", `"`)
	if gjson.Valid(swapped) {
		return gjson.Parse(swapped), true
	}
	return gjson.Result{}, false
}

func stripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

// toResult adapts the accepted payload types to a gjson value.
func toResult(payload any) (gjson.Result, bool) {
	switch p := payload.(type) {
	case nil:
		return gjson.Result{}, false
	case gjson.Result:
		return p, p.Exists()
	case string:
		return gjson.Result{Type: gjson.String, Str: p}, true
	case []byte:
		return bytesResult(p), true
	case json.RawMessage:
		return bytesResult(p), true
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return gjson.Result{}, false
		}
		return gjson.ParseBytes(raw), true
	}
}

// Bodies that are not valid JSON are treated as text and go through string recovery.
func bytesResult(b []byte) gjson.Result {
	if gjson.ValidBytes(b) {
		return gjson.ParseBytes(b)
	}
	return gjson.Result{Type: gjson.String, Str: string(b)}
}
