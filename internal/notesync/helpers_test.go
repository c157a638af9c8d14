package notesync

import (
	"encoding/base64"
	"io"
	"log/slog"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mapStore is an in-memory Store keyed by ID.
type mapStore struct {
	books map[string]Folder
	tags  map[string]Tag
}

func newMapStore(books []Folder, tags []Tag) *mapStore {
	s := &mapStore{books: make(map[string]Folder), tags: make(map[string]Tag)}
	for _, b := range books {
		s.books[b.ID] = b
	}
	for _, t := range tags {
		s.tags[t.ID] = t
	}
	return s
}

func (s *mapStore) Folder(id string) (Folder, bool) {
	b, ok := s.books[id]
	return b, ok
}

func (s *mapStore) Tag(id string) (Tag, bool) {
	t, ok := s.tags[id]
	return t, ok
}

// testStore is Notebook > Work > Projects, plus a second root "Archive".
func testStore() *mapStore {
	return newMapStore(
		[]Folder{
			{ID: "b-root", Name: "Notebook"},
			{ID: "b-work", Name: "Work", ParentID: "b-root"},
			{ID: "b-proj", Name: "Side Projects", ParentID: "b-work"},
			{ID: "b-archive", Name: "Archive"},
		},
		[]Tag{
			{ID: "t-go", Name: "go"},
			{ID: "t-notes", Name: "notes"},
		},
	)
}

func testNote() Note {
	return Note{
		ID:        "note-1",
		Title:     "My Note",
		Body:      "# Hello\n\nBody text.\n",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC),
		BookID:    "b-work",
		TagIDs:    []string{"t-go", "t-notes"},
	}
}

func testConfig() Config {
	return Config{
		Token:           "glpat-test",
		ProjectID:       "42",
		Branch:          "master",
		SkipNoteRootDir: true,
		AddMetadata:     true,
	}
}

// remoteFile wraps content the way GitLab returns it.
func remoteFile(path, content string) *gitlab.File {
	return &gitlab.File{
		FilePath: path,
		Encoding: "base64",
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

// recordingNotifier collects every message it receives.
type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

type recordedOutcome struct {
	note    Note
	outcome Outcome
}

type memRecorder struct {
	entries []recordedOutcome
	err     error
}

func (r *memRecorder) Record(note Note, outcome Outcome) error {
	r.entries = append(r.entries, recordedOutcome{note: note, outcome: outcome})
	return r.err
}
