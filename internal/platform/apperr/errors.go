// Package apperr defines the coded errors returned by services across the API boundary.
// Handlers map a Code to an HTTP status; anything that is not an *Error is treated as internal.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure. Values are the wire representation in API responses.
type Code string

const (
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeNoTenantSelected      Code = "NO_TENANT_SELECTED"
	CodeNotAMember            Code = "NOT_A_MEMBER"
	CodeInsufficientRole      Code = "INSUFFICIENT_ROLE"
	CodeInvalidOrExpiredToken Code = "INVALID_OR_EXPIRED_TOKEN"
	CodeLastOwnerProtection   Code = "LAST_OWNER_PROTECTION"
	CodeConflict              Code = "CONFLICT"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInternal              Code = "INTERNAL"
)

// Error is a coded, user-presentable error. Cause is kept for logging and never rendered.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code, so errors.Is(err, ErrNotAMember) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New returns an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an *Error carrying cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons. Services return fresh values with specific messages.
var (
	ErrUnauthenticated       = New(CodeUnauthenticated, "authentication required")
	ErrNoTenantSelected      = New(CodeNoTenantSelected, "no organization selected")
	ErrNotAMember            = New(CodeNotAMember, "not a member of this organization")
	ErrInsufficientRole      = New(CodeInsufficientRole, "insufficient role")
	ErrInvalidOrExpiredToken = New(CodeInvalidOrExpiredToken, "invitation is invalid or has expired")
	ErrLastOwnerProtection   = New(CodeLastOwnerProtection, "organization must keep at least one owner")
	ErrConflict              = New(CodeConflict, "already exists")
	ErrInvalidArgument       = New(CodeInvalidArgument, "invalid argument")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrInternal              = New(CodeInternal, "something went wrong")
)

// Unauthenticated returns a CodeUnauthenticated error.
func Unauthenticated(msg string) *Error { return New(CodeUnauthenticated, msg) }

// InsufficientRole returns a CodeInsufficientRole error.
func InsufficientRole(msg string) *Error { return New(CodeInsufficientRole, msg) }

// InvalidArgument returns a CodeInvalidArgument error.
func InvalidArgument(msg string) *Error { return New(CodeInvalidArgument, msg) }

// NotFound returns a CodeNotFound error.
func NotFound(msg string) *Error { return New(CodeNotFound, msg) }

// Conflict returns a CodeConflict error.
func Conflict(msg string) *Error { return New(CodeConflict, msg) }

// Internal wraps an infrastructure failure. The message shown to callers is always generic.
func Internal(cause error) *Error { return Wrap(CodeInternal, ErrInternal.Message, cause) }

// CodeOf returns the code of err, or CodeInternal when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the HTTP status returned by the API.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeNotAMember, CodeInsufficientRole:
		return http.StatusForbidden
	case CodeNoTenantSelected, CodeLastOwnerProtection, CodeConflict:
		return http.StatusConflict
	case CodeInvalidOrExpiredToken:
		return http.StatusGone
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
