package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// The msg field on these types is set only for errors rebuilt from a remote
// response, so the client shows the server's text verbatim.

type ValidationError struct {
	Field  string
	Reason string
	msg    string
}

func (e *ValidationError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

type PermissionError struct {
	Role   Role
	Action string
	msg    string
}

func (e *PermissionError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

type NotFoundError struct {
	Kind string
	ID   string
	msg  string
}

func (e *NotFoundError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError means the caller acted on stale state and should refetch.
type ConflictError struct {
	Reason string
	msg    string
}

func (e *ConflictError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "conflict: " + e.Reason
}

type TransportError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("transport %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// ErrorCode is the stable machine-readable code carried in error responses.
func ErrorCode(err error) string {
	switch {
	case IsValidation(err):
		return "validation_failed"
	case IsPermission(err):
		return "permission_denied"
	case IsNotFound(err):
		return "not_found"
	case IsConflict(err):
		return "conflict"
	case IsTransport(err):
		return "unavailable"
	default:
		return "internal"
	}
}

func StatusCode(err error) int {
	switch ErrorCode(err) {
	case "validation_failed":
		return http.StatusBadRequest
	case "permission_denied":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func GRPCCode(err error) codes.Code {
	switch ErrorCode(err) {
	case "validation_failed":
		return codes.InvalidArgument
	case "permission_denied":
		return codes.PermissionDenied
	case "not_found":
		return codes.NotFound
	case "conflict":
		return codes.Aborted
	case "unavailable":
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ErrorFromCode rebuilds a typed error from a decoded error response.
func ErrorFromCode(code, message string) error {
	switch code {
	case "validation_failed":
		return &ValidationError{Reason: message, msg: message}
	case "permission_denied", "unauthenticated":
		return &PermissionError{Action: message, msg: message}
	case "not_found":
		return &NotFoundError{Kind: "item", msg: message}
	case "conflict":
		return &ConflictError{Reason: message, msg: message}
	case "unavailable":
		return &TransportError{Op: "server", Err: errors.New(message)}
	default:
		return errors.New(message)
	}
}

// CodeForStatus guesses an error code for a response whose body carried none.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "unauthenticated"
	case status == http.StatusForbidden:
		return "permission_denied"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status >= http.StatusInternalServerError:
		return "unavailable"
	default:
		return "validation_failed"
	}
}
