// Package apperr defines the business failure kinds returned by the
// submission and ranking services. Storage faults are ordinary wrapped
// errors and are never represented as one of these kinds.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindAlreadySolved     Kind = "ALREADY_SOLVED"
	KindAttemptsExhausted Kind = "ATTEMPTS_EXHAUSTED"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindConflict          Kind = "CONFLICT"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
