// Package watch re-commits a single note whenever the library file it
// lives in changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/internal/library"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"github.com/fsnotify/fsnotify"
)

const (
	// debounceInterval is how often pending events are checked.
	debounceInterval = 500 * time.Millisecond

	// settleDelay is how long the file must stay quiet before it is
	// reloaded, so an editor's burst of writes becomes one commit.
	settleDelay = 300 * time.Millisecond
)

// committer is the subset of notesync.Syncer the watcher needs.
// Extracted for testability.
type committer interface {
	Commit(ctx context.Context, store notesync.Store, note notesync.Note) (notesync.Outcome, error)
}

// snapshot is everything a commit of the note depends on. Two equal
// snapshots produce the same path and content.
type snapshot struct {
	Note  notesync.Note
	Books []notesync.Folder
	Tags  []notesync.Tag
	Err   string
}

// Watcher monitors the library file and commits the watched note when
// its snapshot changes.
type Watcher struct {
	path    string
	noteRef string
	syncer  committer
	logger  *slog.Logger

	interval time.Duration
	settle   time.Duration

	last *snapshot
}

// New creates a watcher for the note identified by noteRef (an _id or an
// exact title) in the library at libraryPath.
func New(libraryPath, noteRef string, syncer committer, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(libraryPath),
		noteRef:  noteRef,
		syncer:   syncer,
		logger:   logger,
		interval: debounceInterval,
		settle:   settleDelay,
	}
}

// Watch commits the note once, then again after every change that
// affects it. It blocks until the context is cancelled. The library's
// directory is watched rather than the file itself, so editors that save
// by renaming a temp file over the original are seen.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching library dir: %w", err)
	}

	w.logger.Info("library watcher started",
		slog.String("library", w.path),
		slog.String("note", w.noteRef),
	)

	w.sync(ctx)

	var (
		pending bool
		lastAt  time.Time
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending = true
				lastAt = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if !pending || time.Since(lastAt) < w.settle {
				continue
			}

			pending = false
			w.sync(ctx)
		}
	}
}

// sync reloads the library and commits the note if anything it depends
// on changed since the last commit. Load failures are logged and leave
// the previous snapshot in place; the next write retries.
func (w *Watcher) sync(ctx context.Context) {
	lib, err := library.Load(w.path)
	if err != nil {
		w.logger.Warn("reloading library", slog.String("error", err.Error()))
		return
	}

	note, err := lib.Note(w.noteRef)
	if err != nil {
		w.logger.Warn("watched note unavailable",
			slog.String("note", w.noteRef),
			slog.String("error", err.Error()),
		)

		return
	}

	snap := takeSnapshot(lib, note)
	if w.last != nil && reflect.DeepEqual(*w.last, snap) {
		w.logger.Debug("watched note unchanged", slog.String("note", note.ID))
		return
	}

	w.last = &snap

	// The outcome has already been reported through the notifier.
	_, _ = w.syncer.Commit(ctx, lib, note)
}

func takeSnapshot(lib *library.Library, note notesync.Note) snapshot {
	s := snapshot{Note: note}

	books, err := notesync.BookChain(lib, note.BookID)
	if err != nil {
		s.Err = err.Error()
	}

	s.Books = books

	for _, id := range note.TagIDs {
		t, _ := lib.Tag(id)
		s.Tags = append(s.Tags, t)
	}

	return s
}
