// Package errdefs defines the error taxonomy shared by every launch
// component. Each fatal condition carries a stable code so callers can
// branch on the category without string matching.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a category of launch failure.
type Code string

const (
	// User input errors. These abort before any side effect.
	CodeInvalidParameter  Code = "INVALID_PARAMETER"
	CodeUnsupportedOption Code = "UNSUPPORTED_OPTION"
	CodeDirectoryError    Code = "DIRECTORY_ERROR"

	// Broker errors. Unreachable means the transport failed; rejected
	// means the broker answered with a non-200 status.
	CodeBrokerUnreachable Code = "BROKER_UNREACHABLE"
	CodeBrokerRejected    Code = "BROKER_REJECTED"

	// Session and scheduler errors. Both trigger token rollback.
	CodeDuplicateSession Code = "DUPLICATE_SESSION"
	CodeSubmissionError  Code = "SUBMISSION_ERROR"
)

// Error is an error with a code and optional context for troubleshooting.
type Error struct {
	Code       Code
	Message    string
	Context    map[string]interface{}
	Cause      error
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Code, e.Message)}

	if len(e.Context) > 0 {
		var ctx []string
		for k, v := range e.Context {
			ctx = append(ctx, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, "context: "+strings.Join(ctx, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	if e.Suggestion != "" {
		parts = append(parts, "suggestion: "+e.Suggestion)
	}

	return strings.Join(parts, "; ")
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithContext adds a context key/value to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause records the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithSuggestion adds an actionable hint to the error.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// IsCode reports whether err (or anything it wraps) carries the code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code carried by err, or the empty string.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// InvalidParameter reports a bad or missing value for a named option.
func InvalidParameter(option string, value interface{}, reason string) *Error {
	return New(CodeInvalidParameter, reason).
		WithContext("option", option).
		WithContext("value", value)
}

// UnsupportedOption reports an option token this tool does not recognize.
// Unknown options are fatal, never silently ignored.
func UnsupportedOption(option string) *Error {
	return Newf(CodeUnsupportedOption, "unrecognized launch option %q", option).
		WithContext("option", option).
		WithSuggestion("run 'galyleo launch --help' for the list of supported options")
}

// DirectoryError reports a working directory that is missing or not
// enterable.
func DirectoryError(dir string, cause error) *Error {
	return Newf(CodeDirectoryError, "cannot enter notebook directory %q", dir).
		WithContext("directory", dir).
		WithCause(cause).
		WithSuggestion("verify the directory exists and is readable before launching")
}

// BrokerUnreachable reports a transport-level failure talking to the
// reverse-proxy broker.
func BrokerUnreachable(endpoint string, cause error) *Error {
	return New(CodeBrokerUnreachable, "reverse proxy broker is unreachable").
		WithContext("endpoint", endpoint).
		WithCause(cause).
		WithSuggestion("check network connectivity to the reverse proxy host")
}

// BrokerRejected reports a non-200 answer from the broker.
func BrokerRejected(endpoint string, status int) *Error {
	return Newf(CodeBrokerRejected, "reverse proxy broker rejected the request (status %d)", status).
		WithContext("endpoint", endpoint).
		WithContext("status", status)
}

// DuplicateSession reports a script name collision in the cache directory.
func DuplicateSession(name, path string) *Error {
	return Newf(CodeDuplicateSession, "a script for session %q already exists", name).
		WithContext("session", name).
		WithContext("path", path).
		WithSuggestion("another launch with the same session name is in flight; retry to get a fresh name")
}

// SubmissionError reports a scheduler submission failure.
func SubmissionError(reason string, cause error) *Error {
	return New(CodeSubmissionError, reason).
		WithCause(cause).
		WithSuggestion("inspect the sbatch output above; common causes are invalid accounts and exhausted allocations")
}

// RejectedStatus extracts the numeric status from a BrokerRejected error,
// or 0 when err is not one.
func RejectedStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeBrokerRejected {
		return 0
	}
	if s, ok := e.Context["status"].(int); ok {
		return s
	}
	return 0
}
