// Package dErrors provides coded domain errors. Services return these so the
// transport layer can map failures to HTTP statuses without inspecting error
// strings, and so tests can assert on the class of a failure rather than its
// wording.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks user-correctable input problems (empty or
	// malformed national identifier, bad merchant fields).
	CodeValidation Code = "validation"
	// CodeBadRequest marks structurally broken requests (unparseable body,
	// missing parameters).
	CodeBadRequest Code = "bad_request"
	// CodeFormat marks a malformed voucher code. Not user-correctable: it
	// indicates corrupted activation data.
	CodeFormat Code = "format"
	// CodeNotFound marks a lookup miss (unknown barcode, household, merchant).
	CodeNotFound Code = "not_found"
	// CodeEmptyBundle marks an activation record with no voucher codes.
	CodeEmptyBundle Code = "empty_bundle"
	// CodeIndexOutOfRange marks a voucher index outside the configured pool
	// length. A codec/config mismatch, treated as a hard failure.
	CodeIndexOutOfRange Code = "index_out_of_range"
	// CodeAlreadyRedeemed marks a bundle containing at least one spent
	// voucher. Expected and user-facing, not a bug.
	CodeAlreadyRedeemed Code = "already_redeemed"
	// CodeConflict marks a uniqueness or state conflict.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken model invariant.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks infrastructure failures surfaced to the caller.
	CodeInternal Code = "internal"
)

// Error is a domain error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while preserving the cause for
// errors.Is/As chains. A nil err returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	for errors.As(err, &domainErr) {
		if domainErr.Code == code {
			return true
		}
		err = domainErr.cause
		domainErr = nil
	}
	return false
}

// Is is shorthand for HasCode; it reads better at call sites that treat the
// code as the error identity.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// is not a domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
