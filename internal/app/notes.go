package app

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

const (
	titleSnippetLen = 40
	untitledNote    = "Untitled note"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// NotesStore is CRUD over the owner's staged notes, newest first.
type NotesStore struct {
	docs  DocumentStore
	key   string
	now   func() time.Time
	newID func() string
	log   *logger.Logger
}

func (s *NotesStore) List(ctx context.Context) ([]domain.Note, error) {
	var notes []domain.Note
	if _, err := loadDocument(ctx, s.docs, s.log, s.key, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

func (s *NotesStore) Get(ctx context.Context, id string) (domain.Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Note{}, domain.ErrNoteNotFound
}

// Add stages typed or pasted text. The title defaults to a snippet of the content.
func (s *NotesStore) Add(ctx context.Context, title, content string) (domain.Note, error) {
	return s.create(ctx, strings.TrimSpace(title), content)
}

// Import stages the text of an uploaded file, titled after the file.
func (s *NotesStore) Import(ctx context.Context, filename, content string) (domain.Note, error) {
	return s.create(ctx, strings.TrimSpace(filename), content)
}

func (s *NotesStore) create(ctx context.Context, title, content string) (domain.Note, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Note{}, domain.ErrEmptyNote
	}
	notes, err := s.List(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	if title == "" {
		title = snippet(content, titleSnippetLen)
	}
	if title == "" {
		title = untitledNote
	}
	note := domain.Note{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		CreatedAt: s.now(),
		WordCount: wordCount(content),
	}
	notes = append([]domain.Note{note}, notes...)
	if err := saveDocument(ctx, s.docs, s.key, notes); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// Update replaces a note's content, and its title when one is given. The ID is preserved.
func (s *NotesStore) Update(ctx context.Context, id, title, content string) (domain.Note, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Note{}, domain.ErrEmptyNote
	}
	notes, err := s.List(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	for i := range notes {
		if notes[i].ID != id {
			continue
		}
		if t := strings.TrimSpace(title); t != "" {
			notes[i].Title = t
		}
		notes[i].Content = content
		notes[i].WordCount = wordCount(content)
		if err := saveDocument(ctx, s.docs, s.key, notes); err != nil {
			return domain.Note{}, err
		}
		return notes[i], nil
	}
	return domain.Note{}, domain.ErrNoteNotFound
}

func (s *NotesStore) Delete(ctx context.Context, id string) error {
	notes, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := notes[:0]
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(notes) {
		return domain.ErrNoteNotFound
	}
	return saveDocument(ctx, s.docs, s.key, kept)
}

// Clear drops every staged note.
func (s *NotesStore) Clear(ctx context.Context) error {
	return s.docs.Delete(ctx, s.key)
}

// ExportJSON renders all notes as an indented JSON array.
func (s *NotesStore) ExportJSON(ctx context.Context) ([]byte, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(notes, "", "  ")
}

// DownloadName is a filesystem-safe .txt name for the note.
func DownloadName(n domain.Note) string {
	title := n.Title
	if title == "" {
		title = "note"
	}
	return unsafeFilenameChars.ReplaceAllString(title, "_") + ".txt"
}

func snippet(s string, n int) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(collapsed) <= n {
		return collapsed
	}
	return string([]rune(collapsed)[:n]) + "..."
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
