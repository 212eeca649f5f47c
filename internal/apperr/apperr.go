// Package apperr defines the error taxonomy shared by command handlers,
// event consumers and the HTTP layer. Every failure a handler can return
// carries one of these kinds so the transport can pick a status code and
// consumers can pick an ack/requeue strategy without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown is the zero value; errors without a kind map to it.
	KindUnknown Kind = iota
	// KindNotFound: a referenced customer or account does not exist.
	KindNotFound
	// KindInvalid: malformed amount, empty required field, bad type code.
	KindInvalid
	// KindConflict: duplicate unique key (email, auto-provisioned account).
	KindConflict
	// KindTransient: store or bus temporarily unreachable; safe to retry.
	KindTransient
	// KindPoison: a delivered message that cannot be deserialized or
	// structurally understood. Never retried.
	KindPoison
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindPoison:
		return "poison"
	default:
		return "unknown"
	}
}

// Error is a kinded error. It wraps an optional cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

func NotFound(msg string) error { return New(KindNotFound, msg) }
func Invalid(msg string) error  { return New(KindInvalid, msg) }
func Conflict(msg string) error { return New(KindConflict, msg) }

func Transient(msg string, cause error) error { return Wrap(KindTransient, msg, cause) }
func Poison(msg string, cause error) error    { return Wrap(KindPoison, msg, cause) }

// KindOf returns the kind of err, walking the wrap chain.
// Errors that never got a kind report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool  { return KindOf(err) == KindNotFound }
func IsInvalid(err error) bool   { return KindOf(err) == KindInvalid }
func IsConflict(err error) bool  { return KindOf(err) == KindConflict }
func IsTransient(err error) bool { return KindOf(err) == KindTransient }
func IsPoison(err error) bool    { return KindOf(err) == KindPoison }
