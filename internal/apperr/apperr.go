// Package apperr defines the error taxonomy shared by every ledger
// operation. Each error carries a machine-readable kind and a human
// readable message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that dispatch on failure mode.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindUnbalanced Kind = "unbalanced_entry"
	KindPermission Kind = "permission"
)

// Error is a kinded application error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Validation reports malformed input, rejected before any write.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing or not-owned resource.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports duplicates, delete-blocked references, double
// reversals and other state collisions.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Unbalanced reports a debit/credit mismatch beyond tolerance.
func Unbalanced(format string, args ...any) *Error {
	return &Error{Kind: KindUnbalanced, Msg: fmt.Sprintf(format, args...)}
}

// Permission surfaces an opaque denial from the external auth layer.
func Permission(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err is not an application
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsUnbalanced(err error) bool { return KindOf(err) == KindUnbalanced }
func IsPermission(err error) bool { return KindOf(err) == KindPermission }
