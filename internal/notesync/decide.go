package notesync

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Action is the kind of change a decision calls for.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
	ActionDeleteReady
	ActionDeleteMissing
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDeleteReady:
		return "delete-ready"
	case ActionDeleteMissing:
		return "delete-missing"
	}

	return fmt.Sprintf("action(%d)", int(a))
}

// DiffStats counts characters inserted and deleted going from the remote
// content to the local content. Informational only.
type DiffStats struct {
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

// Decision is the result of comparing local content with the remote state.
type Decision struct {
	Action  Action
	HasDiff bool
	Diff    DiffStats
}

// Skip reports whether the commit should be abandoned because the remote
// already holds the same content.
func (d Decision) Skip() bool {
	return d.Action == ActionUpdate && !d.HasDiff
}

// DecideCommit compares local content with the decoded remote content.
// Comparison is exact: line endings and trailing whitespace count.
func DecideCommit(local string, remote RemoteState) (Decision, error) {
	if !remote.Present() {
		return Decision{
			Action:  ActionCreate,
			HasDiff: true,
			Diff:    DiffStats{Inserted: utf8.RuneCountInString(local)},
		}, nil
	}

	data, err := remote.File.Decode()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", apperrors.ErrAPIResponse, err)
	}

	remoteText := string(data)
	if remoteText == local {
		return Decision{Action: ActionUpdate}, nil
	}

	return Decision{
		Action:  ActionUpdate,
		HasDiff: true,
		Diff:    diffStats(remoteText, local),
	}, nil
}

// DecideRemove maps the remote state to a delete decision.
func DecideRemove(remote RemoteState) Decision {
	if !remote.Present() {
		return Decision{Action: ActionDeleteMissing}
	}

	return Decision{Action: ActionDeleteReady}
}

func diffStats(from, to string) DiffStats {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)

	var s DiffStats

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			s.Deleted += utf8.RuneCountInString(d.Text)
		}
	}

	return s
}
