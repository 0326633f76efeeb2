package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Compile-time error codes
const (
	ErrSpec            ErrorCode = "SPEC_ERROR"
	ErrToolCompilation ErrorCode = "TOOL_COMPILATION"
)

// Call-time error codes
const (
	ErrArgumentValidation ErrorCode = "ARGUMENT_VALIDATION"
	ErrAuth               ErrorCode = "AUTH_ERROR"
	ErrMultipartBuild     ErrorCode = "MULTIPART_BUILD"
	ErrNetwork            ErrorCode = "NETWORK_ERROR"
	ErrUpstreamAPI        ErrorCode = "UPSTREAM_API"
	ErrToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	// Body holds a bounded snippet of the upstream response body.
	Body  string `json:"body,omitempty"`
	Tool  string `json:"tool,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.HTTPStatus)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithBody attaches an already truncated response body snippet.
func (e *Error) WithBody(body string) *Error {
	e.Body = body
	return e
}

// WithTool sets the tool name the error belongs to.
func (e *Error) WithTool(name string) *Error {
	e.Tool = name
	return e
}

// AsError extracts an *Error from the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// WrapError converts any error into an *Error, keeping an existing code.
func WrapError(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	return NewError(code, message).WithCause(err)
}
