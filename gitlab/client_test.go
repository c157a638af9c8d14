package gitlab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRepo = Repo{ProjectID: "42", Token: "glpat-test"}

// newTestClient creates a Client pointed at the given httptest server.
func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.Client(), srv.URL)
}

// --- NewClient ---

func TestNewClient_DefaultsBaseURLAndHTTPClient(t *testing.T) {
	c := NewClient(nil, "")
	assert.Equal(t, "https://gitlab.com/api/v4", c.baseURL)
	require.NotNil(t, c.httpClient)
	assert.Equal(t, httpClientTimeout, c.httpClient.Timeout)
	assert.NotNil(t, c.httpClient.CheckRedirect)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient(nil, "https://git.example.com/")
	assert.Equal(t, "https://git.example.com/api/v4", c.baseURL)
}

// --- GetFile ---

func TestGetFile_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v4/projects/42/repository/files/work%2Fmy_note.md", r.URL.EscapedPath())
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "glpat-test", r.Header.Get("PRIVATE-TOKEN"))
		w.Write([]byte(`{"file_path":"work/my_note.md","encoding":"base64","content":"aGk="}`))
	}))
	defer srv.Close()

	f, err := newTestClient(srv).GetFile(context.Background(), testRepo, "work/my_note.md", "main")
	require.NoError(t, err)
	assert.Equal(t, "work/my_note.md", f.FilePath)

	data, err := f.Decode()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestGetFile_EscapesProjectPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.EscapedPath(), "/api/v4/projects/group%2Fnotes/"),
			"project path should be a single escaped segment, got %s", r.URL.EscapedPath())
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	repo := Repo{ProjectID: "group/notes", Token: "t"}
	_, err := newTestClient(srv).GetFile(context.Background(), repo, "a.md", "master")
	require.NoError(t, err)
}

func TestGetFile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"404 File Not Found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "missing.md", "master")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGetFile_NotFoundWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "missing.md", "master")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGetFile_ProjectNotFoundIsNotAbsence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"404 Project Not Found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "a.md", "master")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrFileNotFound))
	assert.ErrorIs(t, err, apperrors.ErrAPIResponse)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404 Project Not Found", apiErr.Message)
}

func TestGetFile_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"401 Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "a.md", "master")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.False(t, IsTransient(err))
}

func TestGetFile_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`Bad Gateway`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "a.md", "master")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "Bad Gateway")
}

func TestGetFile_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetFile(context.Background(), testRepo, "a.md", "master")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAPIResponse)
}

func TestGetFile_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(srv)
	srv.Close()

	_, err := c.GetFile(context.Background(), testRepo, "a.md", "master")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, apperrors.ErrAPIRequest)
}

// --- CreateCommit ---

func TestCreateCommit_Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v4/projects/42/repository/commits", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "glpat-test", r.Header.Get("PRIVATE-TOKEN"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "master", req["branch"])
		assert.Equal(t, "Create note: My Note [from Inkdrop plugin]", req["commit_message"])

		actions := req["actions"].([]any)
		require.Len(t, actions, 1)
		action := actions[0].(map[string]any)
		assert.Equal(t, "create", action["action"])
		assert.Equal(t, "work/my_note.md", action["file_path"])
		assert.Equal(t, "hello", action["content"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"abc123def","short_id":"abc123d","title":"Create note: My Note","web_url":"https://gitlab.com/x/-/commit/abc123def"}`))
	}))
	defer srv.Close()

	commit, err := newTestClient(srv).CreateCommit(context.Background(), testRepo, CommitRequest{
		Branch:        "master",
		CommitMessage: "Create note: My Note [from Inkdrop plugin]",
		Actions:       []CommitAction{{Action: ActionCreate, FilePath: "work/my_note.md", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123def", commit.ID)
	assert.Equal(t, "abc123d", commit.ShortID)
	assert.Equal(t, "https://gitlab.com/x/-/commit/abc123def", commit.WebURL)
}

func TestCreateCommit_AcceptsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	commit, err := newTestClient(srv).CreateCommit(context.Background(), testRepo, CommitRequest{})
	require.NoError(t, err)
	assert.Equal(t, "1", commit.ID)
}

func TestCreateCommit_UnreadableBodyStillSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	commit, err := newTestClient(srv).CreateCommit(context.Background(), testRepo, CommitRequest{})
	require.NoError(t, err)
	assert.Empty(t, commit.ID)
}

func TestCreateCommit_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"A file with this name already exists"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateCommit(context.Background(), testRepo, CommitRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAPIResponse)
	assert.Contains(t, err.Error(), "already exists")
	assert.Contains(t, err.Error(), "400")
}

// --- DeleteFile ---

func TestDeleteFile_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v4/projects/42/repository/files/work%2Fmy_note.md", r.URL.EscapedPath())

		body, _ := io.ReadAll(r.Body)
		var req DeleteFileRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "master", req.Branch)
		assert.Equal(t, "Removing note on path /work/my_note.md [from Inkdrop plugin]", req.CommitMessage)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestClient(srv).DeleteFile(context.Background(), testRepo, "work/my_note.md", DeleteFileRequest{
		Branch:        "master",
		CommitMessage: "Removing note on path /work/my_note.md [from Inkdrop plugin]",
	})
	require.NoError(t, err)
}

func TestDeleteFile_OKIsNotNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv).DeleteFile(context.Background(), testRepo, "a.md", DeleteFileRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

// --- File.Decode ---

func TestFileDecode(t *testing.T) {
	content := "Title: x\n\nbody with trailing space \r\n"
	f := File{Encoding: "base64", Content: base64.StdEncoding.EncodeToString([]byte(content))}

	data, err := f.Decode()
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFileDecode_Text(t *testing.T) {
	f := File{Encoding: "text", Content: "plain"}
	data, err := f.Decode()
	require.NoError(t, err)
	assert.Equal(t, "plain", string(data))
}

func TestFileDecode_Invalid(t *testing.T) {
	_, err := (&File{Encoding: "base64", Content: "!!!"}).Decode()
	assert.Error(t, err)

	_, err = (&File{Encoding: "rot13", Content: "x"}).Decode()
	assert.Error(t, err)
}

// --- helpers ---

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message string", `{"message":"404 File Not Found"}`, "404 File Not Found"},
		{"message object", `{"message":{"branch":["is missing"]}}`, `{"branch":["is missing"]}`},
		{"error field", `{"error":"invalid_token"}`, "invalid_token"},
		{"plain text", `Internal Server Error`, "Internal Server Error"},
		{"control chars", "bad\x00body", "bad?body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}

func TestSanitizeResponseBody_Truncates(t *testing.T) {
	long := strings.Repeat("a", 1000)
	assert.Len(t, sanitizeResponseBody([]byte(long)), 256)
}

func TestSameHostRedirectPolicy(t *testing.T) {
	orig, _ := http.NewRequest(http.MethodGet, "https://gitlab.com/api/v4/projects/1", nil)
	same, _ := http.NewRequest(http.MethodGet, "https://gitlab.com/api/v4/projects/2", nil)
	other, _ := http.NewRequest(http.MethodGet, "https://evil.example.com/", nil)

	assert.NoError(t, sameHostRedirectPolicy(same, []*http.Request{orig}))
	assert.Error(t, sameHostRedirectPolicy(other, []*http.Request{orig}))

	via := make([]*http.Request, maxRedirects)
	for i := range via {
		via[i] = orig
	}
	assert.Error(t, sameHostRedirectPolicy(same, via))
}

func TestIsTransientStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, isTransientStatus(code), "%d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409} {
		assert.False(t, isTransientStatus(code), "%d", code)
	}
}
