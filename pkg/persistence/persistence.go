// Package persistence provides the storage abstraction for case workflow
// plans. Every call takes an explicit tenant id; tenant isolation is never
// derived from ambient state.
package persistence

import (
	"context"
	"time"

	"github.com/probata/caseflow/pkg/models"
)

type Persistence interface {
	PlanRepository() PlanRepository
	ActorRepository() ActorRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// CaseRef identifies one case across tenants.
type CaseRef struct {
	TenantID string
	CaseID   string
}

// PlanRepository stores the step set and edge set of case plans.
type PlanRepository interface {
	// StepsByCase returns all steps of one case, unordered.
	StepsByCase(ctx context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error)

	// EdgesByCase returns all dependency edges of one case.
	EdgesByCase(ctx context.Context, tenantID, caseID string) ([]models.DependencyEdge, error)

	// StepByID returns one step, or ErrStepNotFound.
	StepByID(ctx context.Context, tenantID, stepID string) (*models.WorkflowStep, error)

	// ReplacePlan atomically hard-deletes any prior plan for the case and
	// writes the new step and edge set in its place.
	ReplacePlan(ctx context.Context, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge) error

	// UpdateStep writes one step if its stored UpdatedAt still equals
	// expectedUpdatedAt, and ErrConcurrentUpdate otherwise.
	UpdateStep(ctx context.Context, tenantID string, step *models.WorkflowStep, expectedUpdatedAt time.Time) error

	// UpdateSteps applies UpdateStep to a batch inside one transaction; the
	// whole batch fails on the first conflict.
	UpdateSteps(ctx context.Context, tenantID string, steps []*models.WorkflowStep, expected map[string]time.Time) error

	// CasesWithDueSteps returns the cases, across all tenants, holding at
	// least one non-terminal step whose due date falls at or before the
	// given instant. Used by the deadline sweeper.
	CasesWithDueSteps(ctx context.Context, before time.Time) ([]CaseRef, error)
}

// ActorRepository resolves actor ids to their tenant-scoped role.
type ActorRepository interface {
	ActorByID(ctx context.Context, tenantID, actorID string) (*models.Actor, error)
}
