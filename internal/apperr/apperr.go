package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure surfaced by the account services.
type Kind string

const (
	// KindPermissionDenied indicates the caller's role does not allow the operation.
	KindPermissionDenied Kind = "permission_denied"
	// KindInvalidCredentials indicates the provider rejected the supplied credentials.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindNotFound indicates the referenced record does not exist.
	KindNotFound Kind = "not_found"
	// KindEncryptionFailure indicates a key-management call failed.
	KindEncryptionFailure Kind = "encryption_failure"
	// KindProviderFailure indicates a generic upstream cloud provider error.
	KindProviderFailure Kind = "provider_failure"
	// KindValidation indicates malformed input.
	KindValidation Kind = "validation"
	// KindConflict indicates the record already exists.
	KindConflict Kind = "conflict"
	// KindUnauthorized indicates a missing or invalid bearer token.
	KindUnauthorized Kind = "unauthorized"
	// KindInternal indicates an unexpected failure.
	KindInternal Kind = "internal"
)

// Error is a classified error with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	// Code carries the provider error code when one is known.
	Code  string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code=%s)", msg, e.Code)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error around a cause. A classified cause of a
// different kind is kept for its text only, so errors.Is reports the outer
// kind alone.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: detach(kind, cause)}
}

// detachedCause keeps the text of a reclassified error and the chain below it.
type detachedCause struct {
	msg  string
	next error
}

func (d *detachedCause) Error() string { return d.msg }

func (d *detachedCause) Unwrap() error { return d.next }

func detach(kind Kind, cause error) error {
	var inner *Error
	if cause == nil || !errors.As(cause, &inner) || inner.Kind == kind {
		return cause
	}
	return &detachedCause{msg: cause.Error(), next: detach(kind, inner.Cause)}
}

// WithCode sets the provider error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Sentinel values for errors.Is checks.
var (
	ErrPermissionDenied   = New(KindPermissionDenied, "permission denied")
	ErrInvalidCredentials = New(KindInvalidCredentials, "invalid credentials")
	ErrNotFound           = New(KindNotFound, "not found")
	ErrEncryptionFailure  = New(KindEncryptionFailure, "encryption failure")
	ErrProviderFailure    = New(KindProviderFailure, "provider failure")
	ErrValidation         = New(KindValidation, "validation failed")
	ErrConflict           = New(KindConflict, "conflict")
	ErrUnauthorized       = New(KindUnauthorized, "unauthorized")
)

// PermissionDenied builds a permission error.
func PermissionDenied(message string) *Error {
	return New(KindPermissionDenied, message)
}

// NotFound builds a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation builds a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Validationf builds a formatted validation error.
func Validationf(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// CodeOf returns the provider error code carried by err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
