package ankiconnect

import (
	"errors"
	"fmt"
	"time"
)

// ConnectivityError reports that the endpoint could not be reached.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("failed to issue request to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// TimeoutError reports a call that did not complete within its timeout.
type TimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("AnkiConnect request %q timed out after %s", e.Action, e.Timeout)
}

// ProtocolViolationError reports a response that does not have the
// {result, error} envelope shape.
type ProtocolViolationError struct {
	Action string
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("AnkiConnect %s: %s", e.Action, e.Reason)
}

// RemoteApplicationError carries the error value returned by the remote
// application. Error returns that value verbatim.
type RemoteApplicationError struct {
	Action  string
	Message string
}

func (e *RemoteApplicationError) Error() string {
	return e.Message
}

// IsRetryable reports whether err is a connectivity or timeout condition
// that may succeed when retried.
func IsRetryable(err error) bool {
	var connErr *ConnectivityError
	var timeoutErr *TimeoutError
	return errors.As(err, &connErr) || errors.As(err, &timeoutErr)
}

// IsDuplicate reports whether err is the remote rejection of a duplicate
// note.
func IsDuplicate(err error) bool {
	var appErr *RemoteApplicationError
	return errors.As(err, &appErr) && appErr.Message == ErrMsgDuplicate
}

// ErrMsgDuplicate is the message AnkiConnect returns for duplicate notes.
const ErrMsgDuplicate = "cannot create note because it is a duplicate"
