// Package domainerrors provides coded errors for the compliance domain.
//
// Services return these so transport layers can translate failures into
// field-level or global API errors without string matching. Stores return
// pkg/platform/sentinel errors; services wrap them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation marks invalid input: a missing required field, a value
	// outside its enum, or a cross-tenant reference mismatch.
	CodeValidation Code = "validation"

	// CodeInvalidInput marks malformed primitives (bad UUIDs, bad enums) at
	// trust boundaries, before domain validation runs.
	CodeInvalidInput Code = "invalid_input"

	// CodeForbidden marks an authorization failure: the actor is outside the
	// entity's tenant, lacks the required role, or is a platform-level actor
	// barred from business mutations.
	CodeForbidden Code = "forbidden"

	// CodeInvalidTransition marks a lifecycle transition that is not legal
	// from the entity's current status (already active, terminal state, ...).
	CodeInvalidTransition Code = "invalid_transition"

	// CodePaymentRequired marks a policy activation attempted before full
	// verified payment.
	CodePaymentRequired Code = "payment_required"

	// CodeOverlap marks an interval collision with another active record on
	// the same vehicle (policies, registration licenses).
	CodeOverlap Code = "overlap"

	// CodeConflict marks a declared type conflict between permits, or a
	// uniqueness violation (duplicate policy number, second pending payment).
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks a broken model invariant detected by a
	// constructor or mutation guard.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeUnauthorized marks a missing, expired, or unverifiable credential at
	// the transport boundary, before any actor is resolved.
	CodeUnauthorized Code = "unauthorized"

	CodeNotFound Code = "not_found"
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Field names the offending input field when
// the failure is attributable to one; EntityRef identifies a conflicting
// record for overlap/conflict failures.
type Error struct {
	Code      Code
	Message   string
	Field     string
	EntityRef string
	Err       error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithField returns a copy of the error carrying the offending field name.
func (e *Error) WithField(field string) *Error {
	clone := *e
	clone.Field = field
	return &clone
}

// WithEntityRef returns a copy of the error referencing a conflicting record.
func (e *Error) WithEntityRef(ref string) *Error {
	clone := *e
	clone.EntityRef = ref
	return &clone
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf returns the offending field carried by err, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}

// EntityRefOf returns the conflicting entity reference carried by err, if any.
func EntityRefOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.EntityRef
	}
	return ""
}
