package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
	"github.com/alexjbarnes/gitlab-note-sync/internal/config"
	"github.com/alexjbarnes/gitlab-note-sync/internal/journal"
	"github.com/alexjbarnes/gitlab-note-sync/internal/library"
	"github.com/alexjbarnes/gitlab-note-sync/internal/logging"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notify"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app holds what every subcommand shares once config is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Journal
	syncer  *notesync.Syncer
}

type appOptions struct {
	// journal opens the sync journal. Commands that only resolve paths
	// skip it so they do not contend for the database lock.
	journal bool

	// notifyOut receives status messages. Nil sends them to the logger,
	// which is what serve needs since stdout carries the MCP stream.
	notifyOut io.Writer
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Debug("gitlab-sync starting",
		slog.String("version", Version),
		slog.String("gitlab", cfg.GitLabURL),
		slog.String("project", cfg.ProjectID),
		slog.String("branch", cfg.Branch),
	)

	a := &app{cfg: cfg, logger: logger}

	var notifier notesync.Notifier = notify.NewLog(logger)
	if opts.notifyOut != nil {
		notifier = notify.NewWriter(opts.notifyOut)
	}

	syncCfg := notesync.SyncerConfig{
		Remote:   gitlab.NewClient(nil, cfg.GitLabURL),
		Config:   cfg,
		Notifier: notifier,
	}

	if opts.journal {
		j, err := journal.LoadAt(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("loading journal: %w", err)
		}

		a.journal = j
		syncCfg.Recorder = j
	}

	a.syncer = notesync.NewSyncer(syncCfg, logger)

	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("closing journal", slog.String("error", err.Error()))
		}
	}
}

func (a *app) loadLibrary() (*library.Library, error) {
	return library.Load(a.cfg.NoteLibrary)
}

// note loads the library and finds ref in it.
func (a *app) note(ref string) (*library.Library, notesync.Note, error) {
	lib, err := a.loadLibrary()
	if err != nil {
		return nil, notesync.Note{}, err
	}

	note, err := lib.Note(ref)
	if err != nil {
		return nil, notesync.Note{}, err
	}

	return lib, note, nil
}
