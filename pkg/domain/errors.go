package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when no session is stored for a user.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionOutOfSync is returned when an answer targets a question other
// than the one the session is waiting for.
var ErrSessionOutOfSync = errors.New("session out of sync")

// ErrSessionTerminated is returned when an operation targets a completed or
// cancelled session.
var ErrSessionTerminated = errors.New("session terminated")

// ErrFormIncomplete is returned when completion is requested while questions remain.
var ErrFormIncomplete = errors.New("form incomplete")

// ErrInvalidRequest is wrapped by errors caused by malformed caller input,
// such as an empty user id or an unknown variant.
var ErrInvalidRequest = errors.New("invalid request")

// OutOfSyncError carries the question the session expected.
type OutOfSyncError struct {
	SessionID string
	Expected  string // empty when nothing remains to be asked
	Got       string
}

func (e *OutOfSyncError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("session %s: no question pending, got answer for %q", e.SessionID, e.Got)
	}
	return fmt.Sprintf("session %s: expected answer for %q, got %q", e.SessionID, e.Expected, e.Got)
}

func (e *OutOfSyncError) Unwrap() error { return ErrSessionOutOfSync }

// TerminatedError reports an operation attempted on a terminal session.
type TerminatedError struct {
	SessionID string
	Status    Status
	Op        string
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("session %s is %s: cannot %s", e.SessionID, e.Status, e.Op)
}

func (e *TerminatedError) Unwrap() error { return ErrSessionTerminated }

// IncompleteError reports the question still pending when completion was requested.
type IncompleteError struct {
	SessionID string
	Pending   string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("session %s: question %q is still pending", e.SessionID, e.Pending)
}

func (e *IncompleteError) Unwrap() error { return ErrFormIncomplete }
