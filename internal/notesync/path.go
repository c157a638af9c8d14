package notesync

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases s and replaces every space with an underscore.
// Output is NFC-normalized, so names that only differ in Unicode
// composition map to the same path. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	return strings.ReplaceAll(norm.NFC.String(strings.ToLower(s)), " ", "_")
}

// BookChain returns the books from the root down to bookID.
func BookChain(store Store, bookID string) ([]Folder, error) {
	if bookID == "" {
		return nil, fmt.Errorf("note has no book: %w", apperrors.ErrReferenceNotFound)
	}

	var chain []Folder

	visited := make(map[string]struct{})

	for id := bookID; id != ""; {
		if _, seen := visited[id]; seen {
			return nil, fmt.Errorf("book %q: %w", id, apperrors.ErrCycleDetected)
		}

		visited[id] = struct{}{}

		book, ok := store.Folder(id)
		if !ok {
			return nil, fmt.Errorf("book %q: %w", id, apperrors.ErrReferenceNotFound)
		}

		chain = append(chain, book)
		id = book.ParentID
	}

	slices.Reverse(chain)

	return chain, nil
}

// ResolvePath builds the repository path of a note:
// <base>/<book>/.../<title>.md with every segment slugified. The root book
// is dropped when cfg.SkipNoteRootDir is set. With an empty base path the
// result starts with "/".
func ResolvePath(store Store, note Note, cfg Config) (string, error) {
	chain, err := BookChain(store, note.BookID)
	if err != nil {
		return "", err
	}

	if cfg.SkipNoteRootDir && len(chain) > 0 {
		chain = chain[1:]
	}

	var b strings.Builder

	b.WriteString(strings.TrimSuffix(cfg.BasePath, "/"))

	for _, book := range chain {
		b.WriteByte('/')
		b.WriteString(Slugify(book.Name))
	}

	b.WriteByte('/')
	b.WriteString(Slugify(note.Title))
	b.WriteString(".md")

	return b.String(), nil
}

// repoPath is the path as GitLab expects it, without a leading slash.
func repoPath(path string) string {
	return strings.TrimPrefix(path, "/")
}
