package notesync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
)

// commitSuffix marks commits made by this tool, matching the suffix the
// Inkdrop plugin wrote.
const commitSuffix = " [from Inkdrop plugin]"

type syncState string

const (
	stateIdle         syncState = "idle"
	statePathResolved syncState = "path-resolved"
	stateProbed       syncState = "probed"
	stateDecided      syncState = "decided"
	stateCommitted    syncState = "committed"
	stateSkipped      syncState = "skipped"
	stateRemoved      syncState = "removed"
	stateNotFound     syncState = "not-found"
	stateFailed       syncState = "failed"
	stateReported     syncState = "reported"
)

// SyncerConfig holds the collaborators of a Syncer. Recorder is optional.
type SyncerConfig struct {
	Remote   Remote
	Config   ConfigSource
	Notifier Notifier
	Recorder Recorder
}

// Syncer runs commit and remove invocations. It keeps no state between
// invocations and is safe for concurrent use; two invocations on the same
// path are arbitrated by GitLab, not here.
type Syncer struct {
	remote   Remote
	config   ConfigSource
	notifier Notifier
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewSyncer(cfg SyncerConfig, logger *slog.Logger) *Syncer {
	return &Syncer{
		remote:   cfg.Remote,
		config:   cfg.Config,
		notifier: cfg.Notifier,
		recorder: cfg.Recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Path resolves the repository path of a note with the current config.
// No network access.
func (s *Syncer) Path(store Store, note Note) (string, error) {
	return ResolvePath(store, note, s.config.SyncConfig())
}

// Commit pushes the note to the repository: create when the file is
// absent, update when its content differs, skip when it is identical.
// At most one write is issued. The returned error is non-nil exactly when
// the outcome is a failure.
func (s *Syncer) Commit(ctx context.Context, store Store, note Note) (Outcome, error) {
	cfg := s.config.SyncConfig()
	log := s.logger.With(slog.String("op", "commit"), slog.String("note", note.ID))
	s.transition(log, stateIdle)

	path, err := ResolvePath(store, note, cfg)
	if err != nil {
		return s.lookupFailed(log, note, "", err)
	}

	content, err := BuildContent(store, note, cfg)
	if err != nil {
		return s.lookupFailed(log, note, path, err)
	}

	s.transition(log, statePathResolved, slog.String("path", path))

	remote, err := Probe(ctx, s.remote, cfg, path)
	if err != nil {
		return s.probeFailed(log, note, path, err)
	}

	s.transition(log, stateProbed, slog.Bool("present", remote.Present()))

	decision, err := DecideCommit(content, remote)
	if err != nil {
		return s.probeFailed(log, note, path, fmt.Errorf("%w: %w", apperrors.ErrProbeFailed, err))
	}

	s.transition(log, stateDecided,
		slog.String("action", decision.Action.String()),
		slog.Bool("has_diff", decision.HasDiff),
	)

	if decision.Skip() {
		s.transition(log, stateSkipped)

		return s.finish(log, note, Outcome{
			Kind:    OutcomeSkipped,
			Message: MsgNoDiff,
			Path:    path,
		}, nil)
	}

	action := gitlab.ActionCreate
	kind := OutcomeCreated

	if decision.Action == ActionUpdate {
		action = gitlab.ActionUpdate
		kind = OutcomeUpdated
	}

	commit, err := s.remote.CreateCommit(ctx, cfg.Repo(), gitlab.CommitRequest{
		Branch:        cfg.Branch,
		CommitMessage: commitMessage(action, note.Title),
		Actions: []gitlab.CommitAction{{
			Action:   action,
			FilePath: repoPath(path),
			Content:  content,
		}},
	})
	if err != nil {
		s.transition(log, stateFailed)
		log.Warn("commit failed",
			slog.String("path", path),
			slog.Bool("transient", gitlab.IsTransient(err)),
			slog.String("error", err.Error()),
		)

		return s.finish(log, note, Outcome{
			Kind:    OutcomeRequestFailed,
			Message: MsgCommitError,
			Path:    path,
		}, fmt.Errorf("%w: %w", apperrors.ErrCommitFailed, err))
	}

	s.transition(log, stateCommitted, slog.String("commit", commit.ShortID))

	return s.finish(log, note, Outcome{
		Kind:     kind,
		Message:  MsgCommitted,
		Path:     path,
		CommitID: commit.ID,
		Diff:     decision.Diff,
	}, nil)
}

// Remove deletes the note's file from the repository. A missing file is
// reported as not found and no delete is sent.
func (s *Syncer) Remove(ctx context.Context, store Store, note Note) (Outcome, error) {
	cfg := s.config.SyncConfig()
	log := s.logger.With(slog.String("op", "remove"), slog.String("note", note.ID))
	s.transition(log, stateIdle)

	path, err := ResolvePath(store, note, cfg)
	if err != nil {
		return s.lookupFailed(log, note, "", err)
	}

	s.transition(log, statePathResolved, slog.String("path", path))

	remote, err := Probe(ctx, s.remote, cfg, path)
	if err != nil {
		return s.probeFailed(log, note, path, err)
	}

	s.transition(log, stateProbed, slog.Bool("present", remote.Present()))

	decision := DecideRemove(remote)
	s.transition(log, stateDecided, slog.String("action", decision.Action.String()))

	if decision.Action == ActionDeleteMissing {
		s.transition(log, stateNotFound)

		return s.finish(log, note, Outcome{
			Kind:    OutcomeRemoveNotFound,
			Message: msgRemoveNotFound(path),
			Path:    path,
		}, nil)
	}

	err = s.remote.DeleteFile(ctx, cfg.Repo(), repoPath(path), gitlab.DeleteFileRequest{
		Branch:        cfg.Branch,
		CommitMessage: "Removing note on path " + path + commitSuffix,
	})
	if err != nil {
		s.transition(log, stateFailed)
		log.Warn("remove failed",
			slog.String("path", path),
			slog.Bool("transient", gitlab.IsTransient(err)),
			slog.String("error", err.Error()),
		)

		return s.finish(log, note, Outcome{
			Kind:    OutcomeRequestFailed,
			Message: MsgRemoveError,
			Path:    path,
		}, fmt.Errorf("%w: %w", apperrors.ErrRemoveFailed, err))
	}

	s.transition(log, stateRemoved)

	return s.finish(log, note, Outcome{
		Kind:    OutcomeRemoved,
		Message: MsgRemoved,
		Path:    path,
	}, nil)
}

func (s *Syncer) lookupFailed(log *slog.Logger, note Note, path string, err error) (Outcome, error) {
	s.transition(log, stateFailed)
	log.Warn("resolving note failed", slog.String("error", err.Error()))

	return s.finish(log, note, Outcome{
		Kind:    OutcomeLookupFailed,
		Message: msgLookupFailed(err),
		Path:    path,
	}, err)
}

func (s *Syncer) probeFailed(log *slog.Logger, note Note, path string, err error) (Outcome, error) {
	s.transition(log, stateFailed)
	log.Warn("probe failed",
		slog.String("path", path),
		slog.Bool("transient", gitlab.IsTransient(err)),
		slog.String("error", err.Error()),
	)

	return s.finish(log, note, Outcome{
		Kind:    OutcomeRequestFailed,
		Message: msgProbeFailed(path),
		Path:    path,
	}, err)
}

// finish reports the outcome exactly once and records it. Journal
// failures are logged and do not change the outcome.
func (s *Syncer) finish(log *slog.Logger, note Note, out Outcome, err error) (Outcome, error) {
	out.NoteID = note.ID
	out.At = s.now()

	if s.notifier != nil {
		s.notifier.Notify(out.Message)
	}

	if s.recorder != nil {
		if rerr := s.recorder.Record(note, out); rerr != nil {
			log.Warn("failed to record outcome", slog.String("error", rerr.Error()))
		}
	}

	s.transition(log, stateReported, slog.String("outcome", string(out.Kind)))

	if err == nil {
		log.Info(out.Message,
			slog.String("outcome", string(out.Kind)),
			slog.String("path", out.Path),
		)
	}

	return out, err
}

func (s *Syncer) transition(log *slog.Logger, st syncState, attrs ...any) {
	log.Debug("sync state", append([]any{slog.String("state", string(st))}, attrs...)...)
}

// commitMessage renders "Create note: <title> [from Inkdrop plugin]".
func commitMessage(action, title string) string {
	verb := "Create"
	if action == gitlab.ActionUpdate {
		verb = "Update"
	}

	return verb + " note: " + title + commitSuffix
}
