package notesync

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
)

// RemoteState is what the probe saw on the server. File is nil when the
// file is absent.
type RemoteState struct {
	File *gitlab.File
}

// Present reports whether the file exists on the branch.
func (r RemoteState) Present() bool {
	return r.File != nil
}

// Probe reads the file at path on cfg.Branch. Only a "file not found"
// answer counts as absent; every other failure is returned as an error
// wrapping ErrProbeFailed so that a flaky read never turns into a create.
func Probe(ctx context.Context, remote Remote, cfg Config, path string) (RemoteState, error) {
	f, err := remote.GetFile(ctx, cfg.Repo(), repoPath(path), cfg.Branch)
	if errors.Is(err, gitlab.ErrFileNotFound) {
		return RemoteState{}, nil
	}

	if err != nil {
		return RemoteState{}, fmt.Errorf("%w: %w", apperrors.ErrProbeFailed, err)
	}

	return RemoteState{File: f}, nil
}
