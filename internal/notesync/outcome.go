package notesync

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how an invocation ended.
type OutcomeKind string

const (
	OutcomeCreated        OutcomeKind = "created"
	OutcomeUpdated        OutcomeKind = "updated"
	OutcomeSkipped        OutcomeKind = "skipped-no-diff"
	OutcomeRemoved        OutcomeKind = "removed"
	OutcomeRemoveNotFound OutcomeKind = "remove-not-found"
	OutcomeRequestFailed  OutcomeKind = "request-failed"
	OutcomeLookupFailed   OutcomeKind = "lookup-failed"
)

// Status messages shown to the user.
const (
	MsgCommitted   = "File committed successfully"
	MsgNoDiff      = "Did not commit file. No diff with remote."
	MsgCommitError = "File commit error"
	MsgRemoved     = "File removed successfully"
	MsgRemoveError = "File removal error"
)

func msgRemoveNotFound(path string) string {
	return fmt.Sprintf("Could not remove note. A file was not found on path %s.", path)
}

func msgProbeFailed(path string) string {
	return fmt.Sprintf("Could not read remote file on path %s.", path)
}

func msgLookupFailed(err error) string {
	return "Could not resolve note: " + err.Error()
}

// Outcome is the typed result of a Commit or Remove.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Message  string      `json:"message"`
	NoteID   string      `json:"note_id"`
	Path     string      `json:"path,omitempty"`
	CommitID string      `json:"commit_id,omitempty"`
	Diff     DiffStats   `json:"diff"`
	At       time.Time   `json:"at"`
}

// Failed reports whether the invocation ended in an error.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeRequestFailed || o.Kind == OutcomeLookupFailed
}
