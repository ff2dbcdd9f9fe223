package bibliography

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes regeneration failures.
type ErrorKind string

const (
	// ErrKindEngineFailure means the processor returned an error or panicked.
	ErrKindEngineFailure ErrorKind = "ENGINE_FAILURE"

	// ErrKindFormattingErrors means the bibliography reported formatting
	// errors. Citation rewrites still apply.
	ErrKindFormattingErrors ErrorKind = "FORMATTING_ERRORS"

	// ErrKindNoBibliography means the processor produced no bibliography.
	ErrKindNoBibliography ErrorKind = "NO_BIBLIOGRAPHY"
)

// RegenError describes why a regeneration (or its bibliography half) did not
// complete.
type RegenError struct {
	Kind ErrorKind

	// Err is the underlying engine error, if any.
	Err error

	// Messages holds the processor's formatting error messages.
	Messages []string
}

// Error implements the error interface.
func (e *RegenError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case len(e.Messages) > 0:
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Messages, "; "))
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying engine error.
func (e *RegenError) Unwrap() error { return e.Err }

// IsEngineFailure returns true if err is an ENGINE_FAILURE RegenError.
// Uses errors.As to handle wrapped errors.
func IsEngineFailure(err error) bool {
	var re *RegenError
	if errors.As(err, &re) {
		return re.Kind == ErrKindEngineFailure
	}
	return false
}

// IsFormattingError returns true if err is a FORMATTING_ERRORS RegenError.
func IsFormattingError(err error) bool {
	var re *RegenError
	if errors.As(err, &re) {
		return re.Kind == ErrKindFormattingErrors
	}
	return false
}

// PanicError wraps a value recovered from a processor panic.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Op, e.Value)
}
