// Package mcpserver registers MCP tools that push notes to GitLab.
// It adapts the notesync package to the MCP SDK's tool handler interface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexjbarnes/gitlab-note-sync/internal/library"
	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LibraryLoader returns a fresh snapshot of the note library. It is
// called once per tool call so edits made between calls are picked up.
type LibraryLoader func() (*library.Library, error)

// NoteSyncer is the subset of notesync.Syncer the tools need.
type NoteSyncer interface {
	Commit(ctx context.Context, store notesync.Store, note notesync.Note) (notesync.Outcome, error)
	Remove(ctx context.Context, store notesync.Store, note notesync.Note) (notesync.Outcome, error)
	Path(store notesync.Store, note notesync.Note) (string, error)
}

// RegisterTools adds all note tools to the given MCP server.
func RegisterTools(server *mcp.Server, load LibraryLoader, s NoteSyncer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_commit",
		Description: "Push a note to the GitLab repository. Creates the file if it is missing, updates it if the content differs, and does nothing if the remote copy is identical.",
	}, commitHandler(load, s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_remove",
		Description: "Delete a note's file from the GitLab repository. Reports not found, without deleting anything, when the file does not exist.",
	}, removeHandler(load, s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_path",
		Description: "Show the repository path a note maps to. Does not contact GitLab.",
	}, pathHandler(load, s))
}

// --- Input/output types ---

// NoteInput identifies a note.
type NoteInput struct {
	Note string `json:"note" jsonschema:"required,note _id or exact title"`
}

// SyncResult is returned by note_commit and note_remove.
type SyncResult struct {
	Outcome  string             `json:"outcome"`
	Message  string             `json:"message"`
	NoteID   string             `json:"note_id"`
	Path     string             `json:"path"`
	CommitID string             `json:"commit_id,omitempty"`
	Diff     notesync.DiffStats `json:"diff"`
	At       string             `json:"at"`
}

func newSyncResult(out notesync.Outcome) *SyncResult {
	return &SyncResult{
		Outcome:  string(out.Kind),
		Message:  out.Message,
		NoteID:   out.NoteID,
		Path:     out.Path,
		CommitID: out.CommitID,
		Diff:     out.Diff,
		At:       out.At.UTC().Format(time.RFC3339),
	}
}

// PathResult is returned by note_path.
type PathResult struct {
	NoteID string `json:"note_id"`
	Title  string `json:"title"`
	Path   string `json:"path"`
}

// --- Handlers ---

type syncFunc func(ctx context.Context, store notesync.Store, note notesync.Note) (notesync.Outcome, error)

// runSync turns a failed outcome into a tool error carrying the status
// message, so agents see the same text a user would.
func runSync(ctx context.Context, load LibraryLoader, ref string, fn syncFunc) (*mcp.CallToolResult, *SyncResult, error) {
	lib, note, err := lookup(load, ref)
	if err != nil {
		return nil, nil, err
	}

	out, err := fn(ctx, lib, note)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", out.Message, err)
	}

	result := newSyncResult(out)

	return textResult(result), result, nil
}

func commitHandler(load LibraryLoader, s NoteSyncer) mcp.ToolHandlerFor[NoteInput, *SyncResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input NoteInput) (*mcp.CallToolResult, *SyncResult, error) {
		return runSync(ctx, load, input.Note, s.Commit)
	}
}

func removeHandler(load LibraryLoader, s NoteSyncer) mcp.ToolHandlerFor[NoteInput, *SyncResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input NoteInput) (*mcp.CallToolResult, *SyncResult, error) {
		return runSync(ctx, load, input.Note, s.Remove)
	}
}

func pathHandler(load LibraryLoader, s NoteSyncer) mcp.ToolHandlerFor[NoteInput, *PathResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input NoteInput) (*mcp.CallToolResult, *PathResult, error) {
		lib, note, err := lookup(load, input.Note)
		if err != nil {
			return nil, nil, err
		}

		path, err := s.Path(lib, note)
		if err != nil {
			return nil, nil, err
		}

		result := &PathResult{NoteID: note.ID, Title: note.Title, Path: path}

		return textResult(result), result, nil
	}
}

func lookup(load LibraryLoader, ref string) (*library.Library, notesync.Note, error) {
	if ref == "" {
		return nil, notesync.Note{}, fmt.Errorf("note is required")
	}

	lib, err := load()
	if err != nil {
		return nil, notesync.Note{}, err
	}

	note, err := lib.Note(ref)
	if err != nil {
		return nil, notesync.Note{}, err
	}

	return lib, note, nil
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
