package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	ECONFIG       = "config"       // Gateway misconfiguration (missing upstream base URL)
	EUNAUTHORIZED = "unauthorized" // Session token missing
	EUPSTREAM     = "upstream"     // Upstream answered with a non-2xx status
	EBADGATEWAY   = "bad_gateway"  // Upstream answered with a body that is not JSON
	EINVALID      = "invalid"      // Invalid input or validation failure
	ENOTFOUND     = "not_found"    // Resource not found
	ETOOLARGE     = "too_large"    // Request entity too large
	ERATELIMIT    = "rate_limit"   // Rate limit exceeded
	EINTERNAL     = "internal"     // Internal server error, including network failures
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "services.list")
	Message string // Human-readable message
	Status  int    // Relayed HTTP status, only meaningful for EUPSTREAM
	Detail  any    // Diagnostic payload surfaced under the envelope's error field
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorDetail returns the diagnostic payload attached to the error. Errors
// that did not originate here expose their text.
func ErrorDetail(err error) any {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return err.Error()
}

// UpstreamStatus returns the status relayed from the upstream API, or 0.
func UpstreamStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Code == EUPSTREAM {
		return e.Status
	}
	return 0
}

// Convenience constructors for common error types

// Configuration reports that the gateway cannot reach its upstream because a
// required setting is absent.
func Configuration(op, message string) *Error {
	return &Error{
		Code:    ECONFIG,
		Op:      op,
		Message: message,
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) *Error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Upstream relays a failed upstream response. detail is the upstream's own
// error payload, if any.
func Upstream(op string, status int, message string, detail any) *Error {
	return &Error{
		Code:    EUPSTREAM,
		Op:      op,
		Message: message,
		Status:  status,
		Detail:  detail,
	}
}

// BadGateway reports an upstream reply that could not be decoded as JSON.
func BadGateway(err error, op, message string) *Error {
	return &Error{
		Code:    EBADGATEWAY,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Server wraps an unexpected failure, typically a network error talking to
// the upstream. The failure text is kept for diagnostics.
func Server(err error, op, message string) *Error {
	e := &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: message,
	}
}

// TooLarge creates an error for oversized request bodies.
func TooLarge(op, message string) *Error {
	return &Error{
		Code:    ETOOLARGE,
		Op:      op,
		Message: message,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "Too many requests. Please try again later.",
	}
}
