// Package library loads a snapshot of a notebook (books, tags and notes)
// from a YAML file. Field names follow Inkdrop's document format so an
// export can be used as-is.
package library

import (
	"fmt"
	"os"
	"time"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"gopkg.in/yaml.v3"
)

type bookDoc struct {
	ID       string `yaml:"_id"`
	Name     string `yaml:"name"`
	ParentID string `yaml:"parentBookId"`
}

type tagDoc struct {
	ID   string `yaml:"_id"`
	Name string `yaml:"name"`
}

type noteDoc struct {
	ID        string   `yaml:"_id"`
	Title     string   `yaml:"title"`
	Body      string   `yaml:"body"`
	BookID    string   `yaml:"bookId"`
	Tags      []string `yaml:"tags"`
	CreatedAt int64    `yaml:"createdAt"` // unix milliseconds
	UpdatedAt int64    `yaml:"updatedAt"` // unix milliseconds
}

type document struct {
	Books []bookDoc `yaml:"books"`
	Tags  []tagDoc  `yaml:"tags"`
	Notes []noteDoc `yaml:"notes"`
}

// Library is an immutable, indexed notebook snapshot. It implements
// notesync.Store.
type Library struct {
	books map[string]notesync.Folder
	tags  map[string]notesync.Tag
	notes []notesync.Note
	byID  map[string]int
}

// Load reads and parses the library file at path.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading note library: %w", err)
	}

	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing note library %s: %w", path, err)
	}

	return lib, nil
}

// Parse builds a Library from YAML. Every document needs a unique _id.
// References between documents are not checked here; a dangling book or
// tag ID surfaces when the note using it is synced.
func Parse(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	lib := &Library{
		books: make(map[string]notesync.Folder, len(doc.Books)),
		tags:  make(map[string]notesync.Tag, len(doc.Tags)),
		notes: make([]notesync.Note, 0, len(doc.Notes)),
		byID:  make(map[string]int, len(doc.Notes)),
	}

	for i, b := range doc.Books {
		if b.ID == "" {
			return nil, fmt.Errorf("book %d has no _id", i)
		}

		if _, dup := lib.books[b.ID]; dup {
			return nil, fmt.Errorf("duplicate book _id %q", b.ID)
		}

		lib.books[b.ID] = notesync.Folder{ID: b.ID, Name: b.Name, ParentID: b.ParentID}
	}

	for i, t := range doc.Tags {
		if t.ID == "" {
			return nil, fmt.Errorf("tag %d has no _id", i)
		}

		if _, dup := lib.tags[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tag _id %q", t.ID)
		}

		lib.tags[t.ID] = notesync.Tag{ID: t.ID, Name: t.Name}
	}

	for i, n := range doc.Notes {
		if n.ID == "" {
			return nil, fmt.Errorf("note %d has no _id", i)
		}

		if _, dup := lib.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate note _id %q", n.ID)
		}

		lib.byID[n.ID] = len(lib.notes)
		lib.notes = append(lib.notes, notesync.Note{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			CreatedAt: time.UnixMilli(n.CreatedAt).UTC(),
			UpdatedAt: time.UnixMilli(n.UpdatedAt).UTC(),
			BookID:    n.BookID,
			TagIDs:    n.Tags,
		})
	}

	return lib, nil
}

// Folder implements notesync.Store.
func (l *Library) Folder(id string) (notesync.Folder, bool) {
	b, ok := l.books[id]
	return b, ok
}

// Tag implements notesync.Store.
func (l *Library) Tag(id string) (notesync.Tag, bool) {
	t, ok := l.tags[id]
	return t, ok
}

// Note finds a note by _id, falling back to an exact title match. A title
// shared by several notes is rejected rather than guessed.
func (l *Library) Note(ref string) (notesync.Note, error) {
	if i, ok := l.byID[ref]; ok {
		return l.notes[i], nil
	}

	var (
		found notesync.Note
		count int
	)

	for _, n := range l.notes {
		if n.Title == ref {
			found = n
			count++
		}
	}

	switch count {
	case 0:
		return notesync.Note{}, fmt.Errorf("%q: %w", ref, apperrors.ErrNoteNotFound)
	case 1:
		return found, nil
	default:
		return notesync.Note{}, fmt.Errorf("title %q matches %d notes, use the note _id", ref, count)
	}
}

// Notes returns every note in file order.
func (l *Library) Notes() []notesync.Note {
	out := make([]notesync.Note, len(l.notes))
	copy(out, l.notes)

	return out
}
