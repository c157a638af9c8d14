package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/internal/mcpserver"
	"github.com/alexjbarnes/gitlab-note-sync/internal/watch"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitlab-sync",
		Short: "Push notes to a GitLab repository",
		Long: `gitlab-sync publishes single notes from a note library to files in a
GitLab repository through the GitLab API.

Each note maps to <base path>/<book>/.../<title>.md. A commit creates the
file when it is missing, updates it when the content differs and does
nothing when the remote copy is identical.

Configuration is read from the environment or a .env file; GITLAB_TOKEN
and GITLAB_PROJECT_ID are required.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(out)
	root.AddCommand(
		newCommitCmd(out),
		newRemoveCmd(out),
		newPathCmd(out),
		newStatusCmd(out),
		newWatchCmd(out),
		newServeCmd(),
	)

	return root
}

func newCommitCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <note>",
		Short: "Create or update the note's file",
		Long: `Commit a note to the repository. The note is looked up by _id first,
then by exact title.

Examples:
  gitlab-sync commit "My Note"
  gitlab-sync commit note:Bk8Yv2mQx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{journal: true, notifyOut: out})
			if err != nil {
				return err
			}
			defer a.Close()

			lib, note, err := a.note(args[0])
			if err != nil {
				return err
			}

			_, err = a.syncer.Commit(cmd.Context(), lib, note)

			return err
		},
	}
}

func newRemoveCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <note>",
		Short: "Delete the note's file",
		Long: `Remove a note's file from the repository. Nothing is deleted when the
file does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{journal: true, notifyOut: out})
			if err != nil {
				return err
			}
			defer a.Close()

			lib, note, err := a.note(args[0])
			if err != nil {
				return err
			}

			_, err = a.syncer.Remove(cmd.Context(), lib, note)

			return err
		},
	}
}

func newPathCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "path <note>",
		Short: "Print the repository path of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			lib, note, err := a.note(args[0])
			if err != nil {
				return err
			}

			path, err := a.syncer.Path(lib, note)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, path)

			return nil
		},
	}
}

func newStatusCmd(out io.Writer) *cobra.Command {
	var history int

	cmd := &cobra.Command{
		Use:   "status <note>",
		Short: "Show recorded sync outcomes for a note",
		Long: `Show the outcomes recorded in the local journal for a note. This reads
only the journal; it does not contact GitLab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{journal: true})
			if err != nil {
				return err
			}
			defer a.Close()

			// A note deleted from the library can still have history.
			noteID := args[0]
			if _, note, err := a.note(args[0]); err == nil {
				noteID = note.ID
			}

			entries, err := a.journal.History(noteID, history)
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "%s has never been synced\n", noteID)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tOUTCOME\tPATH\tMESSAGE")

			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					e.Outcome.At.Local().Format(time.DateTime),
					e.Outcome.Kind,
					e.Outcome.Path,
					e.Outcome.Message,
				)
			}

			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&history, "history", "n", 1, "number of entries to show, 0 for all")

	return cmd
}

func newWatchCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <note>",
		Short: "Commit a note every time the library file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{journal: true, notifyOut: out})
			if err != nil {
				return err
			}
			defer a.Close()

			w := watch.New(a.cfg.NoteLibrary, args[0], a.syncer, a.logger)

			return ignoreCanceled(w.Watch(cmd.Context()))
		},
	}
}

func newServeCmd() *cobra.Command {
	var watchRef string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an MCP server on stdio",
		Long: `Serve the note_commit, note_remove and note_path tools over MCP on
stdin/stdout. With --watch, a note is also committed whenever the library
file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(appOptions{journal: true})
			if err != nil {
				return err
			}
			defer a.Close()

			mcpServer := mcp.NewServer(
				&mcp.Implementation{Name: "gitlab-sync", Version: Version},
				nil,
			)
			mcpserver.RegisterTools(mcpServer, a.loadLibrary, a.syncer)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				// The client closing stdin ends the session and stops
				// the watcher with it.
				defer cancel()

				a.logger.Info("MCP server listening on stdio")

				return mcpServer.Run(gctx, &mcp.StdioTransport{})
			})

			if watchRef != "" {
				w := watch.New(a.cfg.NoteLibrary, watchRef, a.syncer, a.logger.With(slog.String("service", "watch")))

				g.Go(func() error {
					return w.Watch(gctx)
				})
			}

			return ignoreCanceled(g.Wait())
		},
	}

	cmd.Flags().StringVar(&watchRef, "watch", "", "note to commit whenever the library changes")

	return cmd
}

// ignoreCanceled treats shutdown by signal as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
