// Package apperr defines the error taxonomy shared by all services.
// Handlers translate kinds into HTTP status codes; services never
// return raw gorm or transport errors to callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound covers both missing entities and entities that exist
	// under another tenant. The two must be indistinguishable to callers.
	KindNotFound Kind = iota + 1
	KindForbidden
	KindBadRequest
	KindConflict
	KindAnalysis
	KindInternal
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error  { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *Error  { return &Error{Kind: KindConflict, Message: msg} }

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Analysis(msg string, err error) *Error {
	return &Error{Kind: KindAnalysis, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the taxonomy kind of err, or KindInternal for anything
// that did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
