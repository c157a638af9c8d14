package gitlab

import (
	"encoding/base64"
	"fmt"
)

// Commit action kinds accepted by POST /projects/:id/repository/commits.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// Repo identifies a project and the private token used to access it.
type Repo struct {
	ProjectID string
	Token     string
}

// File is returned from GET /projects/:id/repository/files/:path.
type File struct {
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	Size          int64  `json:"size"`
	Encoding      string `json:"encoding"`
	Content       string `json:"content"`
	ContentSHA256 string `json:"content_sha256"`
	Ref           string `json:"ref"`
	BlobID        string `json:"blob_id"`
	CommitID      string `json:"commit_id"`
	LastCommitID  string `json:"last_commit_id"`
}

// Decode returns the file content as stored in the repository.
func (f *File) Decode() ([]byte, error) {
	switch f.Encoding {
	case "", "base64":
		data, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 content of %s: %w", f.FilePath, err)
		}

		return data, nil
	case "text":
		return []byte(f.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q for %s", f.Encoding, f.FilePath)
	}
}

// CommitAction is a single file change inside a commit request.
type CommitAction struct {
	Action   string `json:"action"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// CommitRequest is the payload for POST /projects/:id/repository/commits.
type CommitRequest struct {
	Branch        string         `json:"branch"`
	CommitMessage string         `json:"commit_message"`
	Actions       []CommitAction `json:"actions"`
}

// Commit is the subset of the commit response we keep.
type Commit struct {
	ID      string
	ShortID string
	Title   string
	WebURL  string
}

// DeleteFileRequest is the payload for DELETE /projects/:id/repository/files/:path.
type DeleteFileRequest struct {
	Branch        string `json:"branch"`
	CommitMessage string `json:"commit_message"`
}
