// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/probata/caseflow/pkg/models"
)

// CreateTestStep creates a test WorkflowStep with default values that can be
// overridden.
func CreateTestStep(overrides ...func(*models.WorkflowStep)) *models.WorkflowStep {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	step := &models.WorkflowStep{
		ID:        uuid.New().String(),
		TenantID:  "tenant-1",
		CaseID:    "case-1",
		StepKey:   "collect-death-certificate",
		Title:     "Collect death certificate",
		Sequence:  1,
		Status:    models.StepStatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithStepKey sets the step key and title.
func WithStepKey(key, title string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.StepKey = key
		s.Title = title
	}
}

// WithSequence sets the display sequence.
func WithSequence(sequence int) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.Sequence = sequence
	}
}

// WithStatus sets the step status.
func WithStatus(status models.StepStatus) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.Status = status
	}
}

// WithCase sets the tenant and case the step belongs to.
func WithCase(tenantID, caseID string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.TenantID = tenantID
		s.CaseID = caseID
	}
}

// WithDueDate sets the due date.
func WithDueDate(due time.Time, source string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.DueDate = &due
		s.DeadlineSource = source
	}
}

// WithOverride marks the step readiness as manually overridden.
func WithOverride(actorID, rationale string, at time.Time) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.IsReadinessOverridden = true
		s.OverrideRationale = rationale
		s.OverriddenBy = actorID
		s.OverriddenAt = &at
	}
}

// WithBlockedReason sets the blocked classification fields.
func WithBlockedReason(code models.BlockedReasonCode, detail string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.Status = models.StepStatusBlocked
		s.BlockedReason = &code
		s.BlockedDetail = detail
	}
}

// CreateTestActor creates a test Actor with default values that can be
// overridden.
func CreateTestActor(overrides ...func(*models.Actor)) *models.Actor {
	actor := &models.Actor{
		ID:       uuid.New().String(),
		TenantID: "tenant-1",
		Role:     models.RoleManager,
	}

	for _, override := range overrides {
		override(actor)
	}

	return actor
}

// WithRole sets the actor role.
func WithRole(role models.Role) func(*models.Actor) {
	return func(a *models.Actor) {
		a.Role = role
	}
}

// WithActorTenant sets the actor tenant.
func WithActorTenant(tenantID string) func(*models.Actor) {
	return func(a *models.Actor) {
		a.TenantID = tenantID
	}
}

// Edge builds a dependency edge between two steps of one case.
func Edge(caseID, stepID, dependsOnStepID string) models.DependencyEdge {
	return models.DependencyEdge{
		CaseID:          caseID,
		StepID:          stepID,
		DependsOnStepID: dependsOnStepID,
	}
}
