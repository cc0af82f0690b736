package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for job status reporting.
type ErrorKind string

const (
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	ErrDecode            ErrorKind = "decode_error"
	ErrIO                ErrorKind = "io_error"
	ErrRecognition       ErrorKind = "recognition_error"
	ErrAlignment         ErrorKind = "alignment_error"
	ErrEmptyInput        ErrorKind = "empty_input"
	ErrTimeout           ErrorKind = "timeout"
	ErrCancelled         ErrorKind = "cancelled"
	ErrInternal          ErrorKind = "internal_error"
)

// PipelineError is a stage-aware error carrying the failure kind that the
// job status exposes to clients.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a PipelineError wrapping err.
func NewError(kind ErrorKind, stage, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to internal_error for
// untyped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrInternal
}
