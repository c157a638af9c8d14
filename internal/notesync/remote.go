package notesync

//go:generate mockgen -source=remote.go -destination=mock_remote_test.go -package=notesync

import (
	"context"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
)

// Remote is the subset of the GitLab client the syncer needs. Extracted
// for testability; *gitlab.Client satisfies it.
type Remote interface {
	GetFile(ctx context.Context, repo gitlab.Repo, filePath, ref string) (*gitlab.File, error)
	CreateCommit(ctx context.Context, repo gitlab.Repo, req gitlab.CommitRequest) (*gitlab.Commit, error)
	DeleteFile(ctx context.Context, repo gitlab.Repo, filePath string, req gitlab.DeleteFileRequest) error
}
