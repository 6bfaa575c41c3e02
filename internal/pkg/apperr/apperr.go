// Package apperr defines the closed set of error kinds the collaboration
// pipeline reports, so callers can branch on kind instead of matching strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	// KindNotFound marks a missing session, batch, item, change set or task.
	KindNotFound Kind = "not_found"
	// KindInvalidState marks an operation against an entity outside its valid
	// current state (committing with zero approved items, applying a
	// non-pending change set, approving a decided task).
	KindInvalidState Kind = "invalid_state"
	// KindConflict marks a session lock already held on the target.
	KindConflict Kind = "conflict"
	// KindUnavailable marks an extraction source that is down or unconfigured.
	KindUnavailable Kind = "unavailable"
	// KindApplyFailure marks an unexpected failure while applying a change set.
	KindApplyFailure Kind = "apply_failure"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func InvalidStatef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Err: fmt.Errorf(format, args...)}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Err: fmt.Errorf(format, args...)}
}

func Unavailablef(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnavailable, Err: fmt.Errorf(format, args...)}
}

func ApplyFailure(err error) *Error {
	return &Error{Kind: KindApplyFailure, Err: err}
}

// KindOf reports the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status the REST layer responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindApplyFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
