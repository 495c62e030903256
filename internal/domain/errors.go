package domain

import "fmt"

// Kind classifies an exchange error so the HTTP transport can map it to a
// status code without string-matching messages.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindForbidden
	KindNotFound
	KindInvariant
)

// Error is the structural error type returned from the handler layer.
// Handlers never panic or rely on exception-style propagation; every
// failure mode listed in the spec is one of these kinds.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func ValidationErrorf(format string, args ...any) *Error { return newErr(KindValidation, format, args...) }
func AuthErrorf(format string, args ...any) *Error       { return newErr(KindAuth, format, args...) }
func ForbiddenErrorf(format string, args ...any) *Error  { return newErr(KindForbidden, format, args...) }
func NotFoundErrorf(format string, args ...any) *Error   { return newErr(KindNotFound, format, args...) }

// InvariantViolation reports a bug: a contract the caller was supposed to
// uphold (e.g. inserting an already-closed order) was broken. These are
// fatal in the sense that they indicate corrupted in-memory state, not a
// recoverable user error.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return e.Msg }

func NewInvariantViolation(format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}
