package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/alexjbarnes/gitlab-note-sync/internal/errors"
	"github.com/tidwall/gjson"
)

// TransientError wraps an error that is likely temporary. Nothing retries
// automatically; callers use it to tell the user a second attempt may work.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// APIError is a non-success response from the GitLab API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Is makes every APIError match apperrors.ErrAPIResponse.
func (e *APIError) Is(target error) bool {
	return target == apperrors.ErrAPIResponse
}

// ErrFileNotFound is returned by GetFile when the file does not exist on
// the requested ref.
var ErrFileNotFound = errors.New("file not found")

const (
	// DefaultBaseURL is the GitLab instance used when none is configured.
	DefaultBaseURL = "https://gitlab.com"

	apiPrefix = "/api/v4"

	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// by the API client when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads. File responses carry
	// base64 content, so this is well above any note we would push.
	maxAPIResponseBytes = 32 * 1024 * 1024
)

// Client talks to the GitLab REST API (v4).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. net/http forwards custom headers on
// redirect, so this keeps PRIVATE-TOKEN from reaching another domain.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates an API client for the GitLab instance at baseURL
// (e.g. "https://gitlab.com"). If httpClient is nil, a client with a
// 30-second timeout and same-host redirect policy is created.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/") + apiPrefix,
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// errorMessage pulls the human readable part out of a GitLab error body.
// GitLab uses {"message": "..."} for most errors, {"message": {...}} for
// validation failures and {"error": "..."} for auth problems.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.String() != "" {
			return sanitizeResponseBody([]byte(msg.String()))
		}

		if msg := gjson.GetBytes(body, "error"); msg.Exists() && msg.String() != "" {
			return sanitizeResponseBody([]byte(msg.String()))
		}
	}

	return sanitizeResponseBody(body)
}

func newAPIError(endpoint string, status int, body []byte) error {
	err := &APIError{
		Endpoint:   endpoint,
		StatusCode: status,
		Message:    errorMessage(body),
	}
	if isTransientStatus(status) {
		return &TransientError{Err: err}
	}

	return err
}

// do sends a request with the private token and an optional JSON body and
// returns the status code and the (capped) response body.
func (c *Client) do(ctx context.Context, method, endpoint string, repo Repo, body interface{}) (int, []byte, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("PRIVATE-TOKEN", repo.Token)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return 0, nil, &TransientError{Err: fmt.Errorf("sending %s %s: %w: %w", method, endpoint, apperrors.ErrAPIRequest, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response from %s: %w: %w", endpoint, apperrors.ErrAPIRequest, err)
	}

	return resp.StatusCode, respBody, nil
}

func projectEndpoint(projectID string) string {
	return "/projects/" + url.PathEscape(projectID)
}

// fileEndpoint addresses a single file. The whole path is one escaped
// segment, so "work/my_note.md" becomes "work%2Fmy_note.md".
func fileEndpoint(projectID, filePath string) string {
	return projectEndpoint(projectID) + "/repository/files/" + url.PathEscape(filePath)
}

// isFileNotFound separates a missing file from a missing project or ref,
// which GitLab also reports as 404 but with a different message.
func isFileNotFound(body []byte) bool {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		return true
	}

	return strings.Contains(strings.ToLower(msg), "file not found")
}

// GetFile reads a file at the given ref. A missing file returns an error
// wrapping ErrFileNotFound.
func (c *Client) GetFile(ctx context.Context, repo Repo, filePath, ref string) (*File, error) {
	endpoint := fileEndpoint(repo.ProjectID, filePath)
	query := url.Values{"ref": []string{ref}}

	status, body, err := c.do(ctx, http.MethodGet, endpoint+"?"+query.Encode(), repo, nil)
	if err != nil {
		return nil, fmt.Errorf("getting file %s: %w", filePath, err)
	}

	switch {
	case status == http.StatusOK:
	case status == http.StatusNotFound && isFileNotFound(body):
		return nil, fmt.Errorf("getting file %s: %w", filePath, ErrFileNotFound)
	default:
		return nil, fmt.Errorf("getting file %s: %w", filePath, newAPIError(endpoint, status, body))
	}

	var f File
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decoding file response for %s: %w: %w", filePath, apperrors.ErrAPIResponse, err)
	}

	return &f, nil
}

// CreateCommit creates a commit with the given file actions. GitLab
// answers 201 Created; 200 is accepted as well.
func (c *Client) CreateCommit(ctx context.Context, repo Repo, req CommitRequest) (*Commit, error) {
	endpoint := projectEndpoint(repo.ProjectID) + "/repository/commits"

	status, body, err := c.do(ctx, http.MethodPost, endpoint, repo, req)
	if err != nil {
		return nil, fmt.Errorf("creating commit: %w", err)
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("creating commit: %w", newAPIError(endpoint, status, body))
	}

	// The commit already exists at this point, so a body we cannot read
	// leaves the fields empty instead of failing the call.
	return &Commit{
		ID:      gjson.GetBytes(body, "id").String(),
		ShortID: gjson.GetBytes(body, "short_id").String(),
		Title:   gjson.GetBytes(body, "title").String(),
		WebURL:  gjson.GetBytes(body, "web_url").String(),
	}, nil
}

// DeleteFile removes a file through a commit on req.Branch. GitLab
// answers 204 No Content; any other status is an error.
func (c *Client) DeleteFile(ctx context.Context, repo Repo, filePath string, req DeleteFileRequest) error {
	endpoint := fileEndpoint(repo.ProjectID, filePath)

	status, body, err := c.do(ctx, http.MethodDelete, endpoint, repo, req)
	if err != nil {
		return fmt.Errorf("deleting file %s: %w", filePath, err)
	}

	if status != http.StatusNoContent {
		return fmt.Errorf("deleting file %s: %w", filePath, newAPIError(endpoint, status, body))
	}

	return nil
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}
