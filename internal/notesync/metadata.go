package notesync

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
)

const metadataCategory = "posts"

// FormatMetadata renders the header block prepended to note bodies:
//
//	Title: <title>
//	Date: <created, YYYY-MM-DD>
//	Modified: <updated, YYYY-MM-DD>
//	Category: posts
//	Tags: <tag names joined by ", ">
//
// followed by one blank line. Dates are taken in UTC.
func FormatMetadata(store Store, note Note) (string, error) {
	names := make([]string, 0, len(note.TagIDs))

	for _, id := range note.TagIDs {
		tag, ok := store.Tag(id)
		if !ok {
			return "", fmt.Errorf("tag %q: %w", id, apperrors.ErrReferenceNotFound)
		}

		names = append(names, tag.Name)
	}

	lines := []string{
		"Title: " + note.Title,
		"Date: " + isoDate(note.CreatedAt),
		"Modified: " + isoDate(note.UpdatedAt),
		"Category: " + metadataCategory,
		"Tags: " + strings.Join(names, ", "),
	}

	return strings.Join(lines, "\n") + "\n\n", nil
}

// BuildContent returns the file content pushed for a note.
func BuildContent(store Store, note Note, cfg Config) (string, error) {
	if !cfg.AddMetadata {
		return note.Body, nil
	}

	header, err := FormatMetadata(store, note)
	if err != nil {
		return "", err
	}

	return header + note.Body, nil
}

func isoDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
