// Package errors provides the typed failures returned by the log readers.
// Every failure aborts the parse; no partial EventLog accompanies an error.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies a failure class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeIOFailure          Code = "E101"
	CodeUnrecognizedFormat Code = "E103"

	// Parse errors (2xx)
	CodeMalformedRow  Code = "E201"
	CodeDecodeFailure Code = "E202"
	CodeEmptyLog      Code = "E203"

	// Unknown
	CodeUnknown Code = "E999"
)

// String returns the taxonomy name of the code.
func (c Code) String() string {
	switch c {
	case CodeIOFailure:
		return "IOFailure"
	case CodeUnrecognizedFormat:
		return "UnrecognizedFormat"
	case CodeMalformedRow:
		return "MalformedRow"
	case CodeDecodeFailure:
		return "DecodeFailure"
	case CodeEmptyLog:
		return "EmptyLog"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrIOFailure          = &ParseError{Code: CodeIOFailure, Message: "io failure"}
	ErrUnrecognizedFormat = &ParseError{Code: CodeUnrecognizedFormat, Message: "unrecognized format"}
	ErrMalformedRow       = &ParseError{Code: CodeMalformedRow, Message: "malformed row"}
	ErrDecodeFailure      = &ParseError{Code: CodeDecodeFailure, Message: "decode failure"}
	ErrEmptyLog           = &ParseError{Code: CodeEmptyLog, Message: "empty log"}
)

// ParseError is the error type for every reader failure.
type ParseError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Code.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *ParseError) Is(target error) bool {
	if t, ok := target.(*ParseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *ParseError) WithContext(key string, value interface{}) *ParseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new ParseError.
func New(code Code, message string) *ParseError {
	return &ParseError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *ParseError {
	if err == nil {
		return nil
	}

	return &ParseError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *ParseError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *ParseError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// cause wraps err, or builds a cause-less error when err is nil.
func cause(err error, code Code, message string) *ParseError {
	if err == nil {
		return New(code, message)
	}
	return Wrap(err, code, message)
}

// IOFailure reports a file that could not be opened or read.
func IOFailure(path string, err error) *ParseError {
	return cause(err, CodeIOFailure, "cannot read file").WithContext("path", path)
}

// MalformedRow reports a delimited row that cannot become an event.
func MalformedRow(path string, row int, reason string) *ParseError {
	return New(CodeMalformedRow, reason).
		WithContext("path", path).
		WithContext("row", row)
}

// UnrecognizedFormat reports input the structured reader does not accept.
func UnrecognizedFormat(path string) *ParseError {
	return New(CodeUnrecognizedFormat, "not a structured event log").WithContext("path", path)
}

// DecodeFailure reports an error raised while decoding a recognized file.
func DecodeFailure(path string, err error) *ParseError {
	return cause(err, CodeDecodeFailure, "cannot decode document").WithContext("path", path)
}

// EmptyLog reports a decoded document without any log entity.
func EmptyLog(path string) *ParseError {
	return New(CodeEmptyLog, "document contains no log").WithContext("path", path)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return CodeUnknown
}

// IsRetryable reports whether retrying the same call could succeed.
// Malformed input stays malformed, so no parse failure qualifies.
func IsRetryable(err error) bool {
	return false
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
