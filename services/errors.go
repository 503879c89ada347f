package services

import (
	"fmt"
	"strings"
)

// ErrorKind classifies workflow failures so the transport layer can map each
// kind to a stable HTTP status without inspecting messages.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindPrecondition
	KindConflict
	KindCrypto
)

// Error carries the kind, a user-facing message and, for precondition
// failures, the specific items (missing or unverified document types) the
// caller can resolve.
type Error struct {
	Kind    ErrorKind
	Message string
	Items   []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Items, ", "))
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrUnauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func ErrForbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func ErrNotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func ErrValidation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func ErrPrecondition(message string, items ...string) *Error {
	return &Error{Kind: KindPrecondition, Message: message, Items: items}
}

func ErrConflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func ErrCrypto(op string, err error) *Error {
	return &Error{Kind: KindCrypto, Message: op + " failed", Err: err}
}

// Internal wraps storage errors so implementation detail never reaches the
// client; the original error stays available for server-side logs.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
