package plan

import (
	"errors"
	"strings"
	"time"

	"github.com/probata/caseflow/pkg/models"
)

var (
	// ErrNotAuthorized is returned when the actor lacks manager-equivalent
	// capability for the case's tenant.
	ErrNotAuthorized = errors.New("actor is not authorized to override readiness")

	// ErrEmptyRationale is returned when an override carries no rationale.
	ErrEmptyRationale = errors.New("override rationale must not be empty")

	// ErrInvalidTargetStatus is returned when the asserted status is neither
	// Ready nor Blocked.
	ErrInvalidTargetStatus = errors.New("override target status must be ready or blocked")
)

// ApplyOverride records a manual readiness assertion on the step. The asserted
// status takes precedence over resolver output until the step completes or a
// later override replaces it (last-write-wins).
func ApplyOverride(step *models.WorkflowStep, target models.StepStatus, rationale string, actor models.Actor, now time.Time) error {
	if !actor.CanOverride() || actor.TenantID != step.TenantID {
		return ErrNotAuthorized
	}

	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return ErrEmptyRationale
	}

	if target != models.StepStatusReady && target != models.StepStatusBlocked {
		return ErrInvalidTargetStatus
	}

	overriddenAt := now

	step.IsReadinessOverridden = true
	step.OverrideRationale = rationale
	step.OverriddenBy = actor.ID
	step.OverriddenAt = &overriddenAt
	step.Status = target

	if target == models.StepStatusReady {
		step.ClearBlocked()

		return nil
	}

	// A manual block is a policy call; record it as such with the manager's
	// rationale as detail.
	code := models.BlockedReasonPolicyRestriction
	step.BlockedReason = &code
	step.BlockedDetail = rationale

	return nil
}

// CompleteClearsOverride applies the automatic clearing rule: an override is
// dropped the moment the step advances to Complete through task progress.
func CompleteClearsOverride(step *models.WorkflowStep) {
	if step.Status == models.StepStatusComplete && step.IsReadinessOverridden {
		step.ClearOverride()
	}
}
