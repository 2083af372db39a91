package model

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates that an LLM operation failed.
	ErrLLMOperation = errors.New("llm operation failed")

	// ErrDuplicateSuggestion indicates that a suggestion with the same hash
	// already exists in some status.
	ErrDuplicateSuggestion = errors.New("duplicate suggestion")

	// ErrInvalidTransition indicates a status change from a non-pending state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotAccepted indicates an attempt to run a suggestion that was not accepted.
	ErrNotAccepted = errors.New("suggestion not accepted")

	// ErrNoActiveTab indicates that a tab-bound action found no active tab.
	ErrNoActiveTab = errors.New("no active tab")

	// ErrElementNotFound indicates that a selector matched no element.
	ErrElementNotFound = errors.New("element not found")
)

// EngineError wraps errors with operation context.
//
// Example:
//
//	err := &EngineError{Op: "Accept", Err: ErrInvalidTransition}
//	// Error() returns: "blueberry: Accept: invalid status transition"
type EngineError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
func (e *EngineError) Error() string {
	return fmt.Sprintf("blueberry: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError wrapping err.
// It returns nil when err is nil.
func NewEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{
		Op:  op,
		Err: err,
	}
}

// NewStorageError wraps a storage failure so that both ErrStorageOperation
// and the storage error itself (e.g. ErrNotFound) match with errors.Is.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewEngineError(op, fmt.Errorf("%w: %w", ErrStorageOperation, err))
}
