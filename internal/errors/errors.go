// Package errors defines the application error taxonomy. Services return
// *AppError values; the HTTP layer maps codes to status codes and the
// message (never the cause) to the response body.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorises an application error.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeConflict     ErrorCode = "conflict"
	ErrCodeValidation   ErrorCode = "validation"
	ErrCodeForeignKey   ErrorCode = "foreign_key"
	ErrCodeInternal     ErrorCode = "internal"
	ErrCodeTimeout      ErrorCode = "timeout"
	ErrCodeCanceled     ErrorCode = "canceled"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeForbidden    ErrorCode = "forbidden"
)

// Kind values distinguish failures that share the coarse validation code.
// Clients branch on these instead of parsing messages.
const (
	KindNonExistentGroups = "non_existent_groups"
	KindNonExistentGroup  = "non_existent_group"
	KindNotAMember        = "not_a_member"
)

// AppError carries a code for transport mapping, a client-safe message, and
// an optional wrapped cause for logs and errors.Is chains.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field names the offending input field on validation and conflict
	// errors, when it can be determined.
	Field string
	// Kind is a machine-readable sub-kind for errors whose code alone is
	// too coarse, such as the group membership validation failures.
	Kind string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound returns a not_found error with the given client-facing message.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Conflict returns a conflict error for duplicate or contended writes.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation returns a validation error for rejected input.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf is Validation with a formatted message.
func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationKind returns a validation error tagged with a machine-readable
// sub-kind.
func ValidationKind(kind, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Kind: kind}
}

// ValidationKindf is ValidationKind with a formatted message.
func ValidationKindf(kind, format string, args ...any) *AppError {
	return ValidationKind(kind, fmt.Sprintf(format, args...))
}

// ForeignKey returns a foreign_key error for referential-integrity failures.
func ForeignKey(message string) *AppError {
	return &AppError{Code: ErrCodeForeignKey, Message: message}
}

// Internal returns an internal error. The message still reaches clients, so
// keep it generic and put detail in the cause.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Unauthorized returns an unauthorized error for missing or bad credentials.
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

// Forbidden returns a forbidden error for callers lacking a permission.
func Forbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

// Wrap attaches a code and client-facing message to an underlying error.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound reports whether any error in the chain is a not_found AppError.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsConflict reports whether any error in the chain is a conflict AppError.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// IsValidation reports whether any error in the chain is a validation AppError.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsUnauthorized reports whether any error in the chain is an unauthorized AppError.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsForbidden reports whether any error in the chain is a forbidden AppError.
func IsForbidden(err error) bool { return hasCode(err, ErrCodeForbidden) }
