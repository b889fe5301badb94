package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the subsystem that produced an error.
type Category string

const (
	CategoryRoute     Category = "route"
	CategoryIoc       Category = "ioc"
	CategoryDiscovery Category = "discovery"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BladeError is a structured error with a stable code, optional source
// location and a fix suggestion.
type BladeError struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the subsystem that raised the error.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually naming the offending
	// component, field, package or pattern.
	Detail string

	// Location is the source code location where the error occurred.
	Location *Location

	// Context contains surrounding source code lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BladeError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BladeError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a *BladeError with the same code.
func (e *BladeError) Is(target error) bool {
	t, ok := target.(*BladeError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithLocation adds source location to the error.
func (e *BladeError) WithLocation(file string, line, column int) *BladeError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BladeError) WithSuggestion(s string) *BladeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BladeError) WithDetail(d string) *BladeError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with fmt formatting.
func (e *BladeError) WithDetailf(format string, args ...any) *BladeError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *BladeError) Wrap(err error) *BladeError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a BladeError from a registered error code.
func New(code string) *BladeError {
	template, ok := registry[code]
	if !ok {
		return &BladeError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BladeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new BladeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BladeError {
	return &BladeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a BladeError. Errors that already are
// a *BladeError are returned unchanged.
func FromError(err error, code string) *BladeError {
	if err == nil {
		return nil
	}
	var be *BladeError
	if stderrors.As(err, &be) {
		return be
	}
	return New(code).Wrap(err)
}

// HasCode reports whether any error in err's chain is a *BladeError with code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &BladeError{Code: code})
}

// CodeOf returns the code of the first *BladeError in err's chain.
func CodeOf(err error) string {
	var be *BladeError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return ""
}
