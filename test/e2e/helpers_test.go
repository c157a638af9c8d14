package e2e_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
	"github.com/alexjbarnes/gitlab-note-sync/gitlab/gitlabtest"
	"github.com/alexjbarnes/gitlab-note-sync/internal/journal"
	"github.com/alexjbarnes/gitlab-note-sync/internal/library"
	"github.com/alexjbarnes/gitlab-note-sync/internal/mcpserver"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notify"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const (
	testProject = "notes/blog"
	testToken   = "glpat-e2e"
	testBranch  = "master"
)

const seedLibrary = `
books:
  - _id: book:root
    name: Notebook
  - _id: book:work
    name: Work
    parentBookId: book:root
  - _id: book:proj
    name: Side Projects
    parentBookId: book:work
tags:
  - _id: tag:go
    name: go
  - _id: tag:ideas
    name: ideas
notes:
  - _id: note:a
    title: My Note
    body: "# My Note\n\nHello.\n"
    bookId: book:work
    tags: [tag:go, tag:ideas]
    createdAt: 1709287200000
    updatedAt: 1709681400000
  - _id: note:b
    title: Plan
    body: "todo\n"
    bookId: book:proj
    createdAt: 1709287200000
    updatedAt: 1709287200000
`

// messages collects notifications.
type messages struct {
	mu   sync.Mutex
	list []string
}

func (m *messages) Notify(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.list = append(m.list, msg)
}

func (m *messages) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.list...)
}

// harness holds the full stack: a fake GitLab, the real API client, a
// syncer recording into a bbolt journal, and a library file on disk.
type harness struct {
	GitLab   *gitlabtest.Server
	Syncer   *notesync.Syncer
	Journal  *journal.Journal
	Messages *messages
	LibPath  string
	Logger   *slog.Logger
}

func newHarness(t *testing.T, cfg notesync.Config) *harness {
	t.Helper()

	dir := t.TempDir()
	libPath := filepath.Join(dir, "notes.yaml")
	require.NoError(t, os.WriteFile(libPath, []byte(seedLibrary), 0o600))

	j, err := journal.LoadAt(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	gl := gitlabtest.NewServer(t, testProject, testToken, testBranch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	msgs := &messages{}

	syncer := notesync.NewSyncer(notesync.SyncerConfig{
		Remote:   gitlab.NewClient(gl.Client(), gl.URL),
		Config:   notesync.StaticConfig(cfg),
		Notifier: notify.Multi{msgs, notify.NewLog(logger)},
		Recorder: j,
	}, logger)

	return &harness{
		GitLab:   gl,
		Syncer:   syncer,
		Journal:  j,
		Messages: msgs,
		LibPath:  libPath,
		Logger:   logger,
	}
}

func defaultConfig() notesync.Config {
	return notesync.Config{
		Token:           testToken,
		ProjectID:       testProject,
		Branch:          testBranch,
		SkipNoteRootDir: true,
		AddMetadata:     true,
	}
}

func (h *harness) library(t *testing.T) *library.Library {
	t.Helper()

	lib, err := library.Load(h.LibPath)
	require.NoError(t, err)

	return lib
}

func (h *harness) note(t *testing.T, ref string) (*library.Library, notesync.Note) {
	t.Helper()

	lib := h.library(t)
	n, err := lib.Note(ref)
	require.NoError(t, err)

	return lib, n
}

// mcpSession connects an in-memory MCP client to tools backed by the
// harness.
func (h *harness) mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "gitlab-sync-e2e", Version: "test"}, nil)
	mcpserver.RegisterTools(server, func() (*library.Library, error) { return library.Load(h.LibPath) }, h.Syncer)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "e2e-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

func extractTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

// waitFor polls until cond returns true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("timed out waiting for condition")
}
