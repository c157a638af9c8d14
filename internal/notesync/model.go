// Package notesync decides how a single note maps onto a file in a GitLab
// repository and carries out the create, update, skip or delete that
// follows from comparing it with the remote copy.
package notesync

import (
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
)

// Note is an immutable snapshot of a note taken when a sync starts.
type Note struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
	BookID    string
	TagIDs    []string
}

// Folder is a book in the notebook hierarchy. An empty ParentID marks a
// root book.
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// Tag is a named label attached to notes by ID.
type Tag struct {
	ID   string
	Name string
}

// Store is read-only access to the books and tags a note refers to.
type Store interface {
	Folder(id string) (Folder, bool)
	Tag(id string) (Tag, bool)
}

// Config is the per-invocation sync configuration.
type Config struct {
	Token           string
	ProjectID       string
	Branch          string
	BasePath        string
	SkipNoteRootDir bool
	AddMetadata     bool
}

// Repo returns the GitLab project addressed by the config.
func (c Config) Repo() gitlab.Repo {
	return gitlab.Repo{ProjectID: c.ProjectID, Token: c.Token}
}

// ConfigSource yields the config for one invocation. It is read exactly
// once at the start of Commit and Remove.
type ConfigSource interface {
	SyncConfig() Config
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig Config

// SyncConfig implements ConfigSource.
func (c StaticConfig) SyncConfig() Config { return Config(c) }

// Notifier receives the single status message produced by each
// invocation.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string) { f(message) }

// Recorder persists outcomes for later inspection. It is never consulted
// when deciding what to do.
type Recorder interface {
	Record(note Note, outcome Outcome) error
}
