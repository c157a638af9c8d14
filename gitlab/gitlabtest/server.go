// Package gitlabtest provides an in-memory GitLab repository API for
// tests. It implements the file read, commit and file delete endpoints
// for a single project and branch.
package gitlabtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alexjbarnes/gitlab-note-sync/gitlab"
)

// Request is one call received by the server.
type Request struct {
	Method        string
	FilePath      string // unescaped, empty for commit requests
	CommitMessage string
	Actions       []gitlab.CommitAction
}

type fault struct {
	status int
	body   string
}

// Server is a fake GitLab instance. URL is the base URL to pass to
// gitlab.NewClient.
type Server struct {
	*httptest.Server

	projectID string
	token     string
	branch    string

	mu       sync.Mutex
	files    map[string]string
	requests []Request
	faults   map[string]fault
	commits  int
}

// NewServer starts a fake serving projectID on branch, accepting only
// token. It is closed when the test ends.
func NewServer(t testing.TB, projectID, token, branch string) *Server {
	t.Helper()

	s := &Server{
		projectID: projectID,
		token:     token,
		branch:    branch,
		files:     make(map[string]string),
		faults:    make(map[string]fault),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)

	return s
}

// SetFile stores content at path, bypassing the API.
func (s *Server) SetFile(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[path] = content
}

// File returns the stored content at path.
func (s *Server) File(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.files[path]

	return c, ok
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Count returns how many requests used method.
func (s *Server) Count(method string) int {
	n := 0

	for _, r := range s.Requests() {
		if r.Method == method {
			n++
		}
	}

	return n
}

// FailNext makes the next request with method answer status with a
// {"message": message} body.
func (s *Server) FailNext(method string, status int, message string) {
	body, _ := json.Marshal(map[string]string{"message": message})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.faults[method] = fault{status: status, body: string(body)}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("PRIVATE-TOKEN") != s.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "401 Unauthorized"})
		return
	}

	rest, ok := strings.CutPrefix(r.URL.EscapedPath(), "/api/v4/projects/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	escapedProject, resource, _ := strings.Cut(rest, "/")

	project, err := url.PathUnescape(escapedProject)
	if err != nil || project != s.projectID {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
		return
	}

	switch {
	case resource == "repository/commits" && r.Method == http.MethodPost:
		s.handleCommit(w, r)
	case strings.HasPrefix(resource, "repository/files/"):
		path, err := url.PathUnescape(strings.TrimPrefix(resource, "repository/files/"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_path is invalid"})
			return
		}

		switch r.Method {
		case http.MethodGet:
			s.handleGet(w, r, path)
		case http.MethodDelete:
			s.handleDelete(w, r, path)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

// takeFault reports whether an injected failure was written.
func (s *Server) takeFault(w http.ResponseWriter, method string) bool {
	f, ok := s.faults[method]
	if !ok {
		return false
	}

	delete(s.faults, method)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))

	return true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, path string) {
	s.requests = append(s.requests, Request{Method: r.Method, FilePath: path})

	if s.takeFault(w, r.Method) {
		return
	}

	if r.URL.Query().Get("ref") != s.branch {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Commit Not Found"})
		return
	}

	content, ok := s.files[path]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 File Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, gitlab.File{
		FileName: path[strings.LastIndex(path, "/")+1:],
		FilePath: path,
		Size:     int64(len(content)),
		Encoding: "base64",
		Content:  base64.StdEncoding.EncodeToString([]byte(content)),
		Ref:      s.branch,
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req gitlab.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.requests = append(s.requests, Request{Method: r.Method, CommitMessage: req.CommitMessage, Actions: req.Actions})

	if s.takeFault(w, r.Method) {
		return
	}

	if req.Branch != s.branch {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "You can only create or edit files when you are on a branch"})
		return
	}

	for _, a := range req.Actions {
		_, exists := s.files[a.FilePath]

		switch {
		case a.Action == gitlab.ActionCreate && exists:
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "A file with this name already exists"})
			return
		case a.Action == gitlab.ActionUpdate && !exists:
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "A file with this name doesn't exist"})
			return
		case a.Action != gitlab.ActionCreate && a.Action != gitlab.ActionUpdate:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "actions[0][action] does not have a valid value"})
			return
		}
	}

	for _, a := range req.Actions {
		s.files[a.FilePath] = a.Content
	}

	s.commits++
	id := fmt.Sprintf("%040x", s.commits)
	title, _, _ := strings.Cut(req.CommitMessage, "\n")

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       id,
		"short_id": id[:8],
		"title":    title,
		"web_url":  s.URL + "/commit/" + id,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, path string) {
	var req gitlab.DeleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	s.requests = append(s.requests, Request{Method: r.Method, FilePath: path, CommitMessage: req.CommitMessage})

	if s.takeFault(w, r.Method) {
		return
	}

	if _, ok := s.files[path]; !ok || req.Branch != s.branch {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "A file with this name doesn't exist"})
		return
	}

	delete(s.files, path)
	s.commits++
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
