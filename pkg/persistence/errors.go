// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrStepNotFound indicates a workflow step was not found by the given identifier.
	ErrStepNotFound = errors.New("workflow step not found")

	// ErrCaseNotFound indicates no plan exists for the given case.
	ErrCaseNotFound = errors.New("case plan not found")

	// ErrActorNotFound indicates an actor was not found within the tenant.
	ErrActorNotFound = errors.New("actor not found")

	// ErrConcurrentUpdate indicates a write observed a row changed since the
	// snapshot was read. Callers should reload and retry.
	ErrConcurrentUpdate = errors.New("step changed since it was read")

	// ErrDuplicateStepKey indicates a plan carried two steps with the same key.
	ErrDuplicateStepKey = errors.New("step key already exists in case")
)

// StepError wraps step-related errors with additional context.
type StepError struct {
	Op     string // Operation being performed (e.g., "StepByID", "UpdateStep")
	CaseID string // Case ID if applicable
	StepID string // Step ID if applicable
	Err    error  // Underlying error
}

func (e *StepError) Error() string {
	target := e.StepID
	if target == "" {
		target = "case " + e.CaseID
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStepError creates a new step error with context.
func NewStepError(op, stepID string, err error) *StepError {
	return &StepError{Op: op, StepID: stepID, Err: err}
}

// NewCaseError creates a new step error for whole-case operations.
func NewCaseError(op, caseID string, err error) *StepError {
	return &StepError{Op: op, CaseID: caseID, Err: err}
}

// IsStepNotFound checks if an error indicates a step was not found.
func IsStepNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound)
}

// IsCaseNotFound checks if an error indicates a case plan was not found.
func IsCaseNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound)
}

// IsActorNotFound checks if an error indicates an actor was not found.
func IsActorNotFound(err error) bool {
	return errors.Is(err, ErrActorNotFound)
}

// IsConcurrentUpdate checks if an error indicates an optimistic-concurrency conflict.
func IsConcurrentUpdate(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}
