// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/plan"
	"github.com/probata/caseflow/pkg/template"
)

// Validation errors (400 Bad Request).
var (
	ErrEmptyRationale      = plan.ErrEmptyRationale
	ErrInvalidTargetStatus = plan.ErrInvalidTargetStatus
	ErrInvalidTransition   = errors.New("step status transition not allowed")
	ErrTemplateRequired    = errors.New("plan template is required")
)

// Authorization errors (403 Forbidden).
var (
	ErrNotAuthorized = plan.ErrNotAuthorized
)

// Not-found errors (404).
var (
	ErrStepNotFound  = persistence.ErrStepNotFound
	ErrCaseNotFound  = persistence.ErrCaseNotFound
	ErrActorNotFound = persistence.ErrActorNotFound
)

// Conflict errors (409).
var (
	ErrConflict = persistence.ErrConcurrentUpdate
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyRationale) ||
		errors.Is(err, ErrInvalidTargetStatus) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrTemplateRequired) ||
		errors.Is(err, template.ErrInvalidTemplate) ||
		errors.Is(err, template.ErrUnknownDependencyKey) ||
		errors.Is(err, template.ErrDuplicateStepKey)
}

// IsAuthorizationError checks if an error indicates a missing role capability.
// Surfaced distinctly from validation so clients can prompt escalation instead
// of input correction.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsConflictError checks if an error is an optimistic-concurrency conflict
// that should return HTTP 409. Callers reload and retry.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsGraphIntegrityError checks if an error is a fatal dependency-graph defect.
// Never repaired here; it indicates a write-time bug elsewhere.
func IsGraphIntegrityError(err error) bool {
	return errors.Is(err, plan.ErrCycleDetected) || errors.Is(err, plan.ErrDanglingReference)
}

// IsNotFound checks if an error indicates a missing step, case plan or actor.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStepNotFound) ||
		errors.Is(err, ErrCaseNotFound) ||
		errors.Is(err, ErrActorNotFound)
}
