package utils

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers classify failures with errors.Is rather than
// inspecting messages.
var (
	// ErrInvalidInput marks a malformed or incomplete caller payload. It is the
	// only kind that should ever propagate out of report generation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSummarizerUnavailable marks a summarizer timeout, transport error, or
	// empty response. Always recovered locally with the templated fallback.
	ErrSummarizerUnavailable = errors.New("summarizer unavailable")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidInput constructs an AppError carrying the ErrInvalidInput kind.
func InvalidInput(op, msg string) error {
	return &AppError{Op: op, Msg: msg, Err: ErrInvalidInput}
}

// SummarizerUnavailable constructs an AppError carrying the
// ErrSummarizerUnavailable kind, preserving the cause for logs.
func SummarizerUnavailable(op string, cause error) error {
	if cause == nil {
		return &AppError{Op: op, Msg: "summarizer failed", Err: ErrSummarizerUnavailable}
	}
	return &AppError{Op: op, Msg: cause.Error(), Err: ErrSummarizerUnavailable}
}
