package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"notes-quiz-service/internal/app"
	"notes-quiz-service/internal/domain"
)

func TestNotesAddPrependsAndDefaultsTitle(t *testing.T) {
	ctx := context.Background()
	ws, _ := newMemoryWorkspaces()
	notes := ws.For("alice").Notes

	first, err := notes.Add(ctx, "Biology", "Cells are the basic unit of life.")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.Title != "Biology" || first.WordCount != 7 || first.ID == "" {
		t.Fatalf("unexpected note %+v", first)
	}

	long := "The   mitochondria\nis the powerhouse of the cell and produces ATP for the cell."
	second, err := notes.Add(ctx, "  ", long)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if second.Title != "The mitochondria is the powerhouse of th..." {
		t.Fatalf("unexpected snippet title %q", second.Title)
	}

	list, err := notes.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v, %v", list, err)
	}
}

func TestNotesRejectEmptyContent(t *testing.T) {
	ctx := context.Background()
	ws, _ := newMemoryWorkspaces()
	notes := ws.For("alice").Notes

	if _, err := notes.Add(ctx, "Empty", " \n\t "); !errors.Is(err, domain.ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	list, _ := notes.List(ctx)
	if len(list) != 0 {
		t.Fatalf("rejected note must not be stored")
	}
}

func TestNotesImportUsesFilename(t *testing.T) {
	ws, _ := newMemoryWorkspaces()
	n, err := ws.For("alice").Notes.Import(context.Background(), "lecture-3.txt", "Photosynthesis converts light into chemical energy.")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n.Title != "lecture-3.txt" {
		t.Fatalf("expected filename title, got %q", n.Title)
	}
}

func TestNotesUpdateDeleteClear(t *testing.T) {
	ctx := context.Background()
	ws, _ := newMemoryWorkspaces()
	notes := ws.For("alice").Notes

	n, err := notes.Add(ctx, "Draft", "one two")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	updated, err := notes.Update(ctx, n.ID, "", "one two three")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != n.ID || updated.Title != "Draft" || updated.WordCount != 3 {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, err := notes.Update(ctx, n.ID, "Draft", ""); !errors.Is(err, domain.ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	if _, err := notes.Update(ctx, "missing", "", "text"); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}

	got, err := notes.Get(ctx, n.ID)
	if err != nil || got.Content != "one two three" {
		t.Fatalf("get: %+v, %v", got, err)
	}

	if err := notes.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
	if err := notes.Delete(ctx, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := notes.Get(ctx, n.ID); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected deleted note gone, got %v", err)
	}

	if _, err := notes.Add(ctx, "", "keep me around"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := notes.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if list, _ := notes.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty list after clear, got %d", len(list))
	}
}

func TestNotesExportJSON(t *testing.T) {
	ctx := context.Background()
	ws, _ := newMemoryWorkspaces()
	notes := ws.For("alice").Notes
	if _, err := notes.Add(ctx, "A", "alpha"); err != nil {
		t.Fatalf("add: %v", err)
	}

	raw, err := notes.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(raw), "\n  {") {
		t.Fatalf("expected indented output, got %s", raw)
	}
	var decoded []domain.Note
	if err := json.Unmarshal(raw, &decoded); err != nil || len(decoded) != 1 || decoded[0].Title != "A" {
		t.Fatalf("unexpected export %s, %v", raw, err)
	}
}

func TestDownloadName(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Lecture 3: Cells/Tissues", "Lecture_3__Cells_Tissues.txt"},
		{"", "note.txt"},
		{"ok-name_1.v2", "ok-name_1.v2.txt"},
	}
	for _, tc := range cases {
		if got := app.DownloadName(domain.Note{Title: tc.title}); got != tc.want {
			t.Fatalf("DownloadName(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestNotesDiscardPartiallyDecodableDocument(t *testing.T) {
	ctx := context.Background()
	ws, docs := newMemoryWorkspaces()
	if err := docs.Put(ctx, "alice:notes_quiz_app_v1", []byte(`[{"id":"n1","content":5}]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	notes := ws.For("alice").Notes

	list, err := notes.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected type-mismatched document to read as empty, got %+v", list)
	}
	if _, err := notes.Get(ctx, "n1"); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}
