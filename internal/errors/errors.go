package errors

import "errors"

// Lookup errors.
var (
	ErrReferenceNotFound = errors.New("reference not found")
	ErrCycleDetected     = errors.New("cycle detected in book hierarchy")
	ErrNoteNotFound      = errors.New("note not found")
)

// Sync errors.
var (
	ErrProbeFailed  = errors.New("reading remote file failed")
	ErrCommitFailed = errors.New("committing file failed")
	ErrRemoveFailed = errors.New("removing file failed")
)

// Server/transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
