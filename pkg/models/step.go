// Package models defines the core domain models for case workflow planning.
package models

import (
	"slices"
	"time"
)

// StepStatus represents the lifecycle state of a workflow step.
type StepStatus string

const (
	StepStatusNotStarted       StepStatus = "not_started"
	StepStatusBlocked          StepStatus = "blocked"
	StepStatusReady            StepStatus = "ready"
	StepStatusInProgress       StepStatus = "in_progress"
	StepStatusAwaitingEvidence StepStatus = "awaiting_evidence"
	StepStatusComplete         StepStatus = "complete"
	StepStatusSkipped          StepStatus = "skipped"
)

// IsTerminal reports whether the status is frozen against further resolver writes.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusComplete || s == StepStatusSkipped
}

// IsValid reports whether the status is a known member of the enum.
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusNotStarted, StepStatusBlocked, StepStatusReady,
		StepStatusInProgress, StepStatusAwaitingEvidence,
		StepStatusComplete, StepStatusSkipped:
		return true
	default:
		return false
	}
}

// externalTransitions lists the status moves task-progress updates may make
// directly. Transitions into Blocked are resolver-only; transitions into Ready
// happen through the resolver or an override.
var externalTransitions = map[StepStatus][]StepStatus{
	StepStatusNotStarted:       {StepStatusSkipped},
	StepStatusBlocked:          {StepStatusSkipped},
	StepStatusReady:            {StepStatusInProgress, StepStatusSkipped},
	StepStatusInProgress:       {StepStatusAwaitingEvidence, StepStatusComplete, StepStatusSkipped},
	StepStatusAwaitingEvidence: {StepStatusInProgress, StepStatusComplete, StepStatusSkipped},
}

// CanTransition reports whether an external task-progress update may move a
// step from one status to another. Complete and Skipped are terminal.
func CanTransition(from, to StepStatus) bool {
	return slices.Contains(externalTransitions[from], to)
}

// WorkflowStep is one checklist item within one case's plan.
type WorkflowStep struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id" validate:"required"`
	CaseID   string `json:"case_id"   validate:"required"`
	StepKey  string `json:"step_key"  validate:"required,lowercase"`

	Title           string     `json:"title"    validate:"required"`
	Sequence        int        `json:"sequence" validate:"min=0"`
	Status          StepStatus `json:"status"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	DeadlineSource  string     `json:"deadline_source,omitempty"`
	AssignedActorID string     `json:"assigned_actor_id,omitempty"`

	// Override fields. While IsReadinessOverridden is set the status holds the
	// asserted value, not a resolver-derived one.
	IsReadinessOverridden bool       `json:"is_readiness_overridden"`
	OverrideRationale     string     `json:"override_rationale,omitempty"`
	OverriddenBy          string     `json:"overridden_by,omitempty"`
	OverriddenAt          *time.Time `json:"overridden_at,omitempty"`

	// Blocked fields, populated only while status is Blocked and the step is
	// not overridden to Ready.
	BlockedReason *BlockedReasonCode `json:"blocked_reason,omitempty"`
	BlockedDetail string             `json:"blocked_detail,omitempty"`

	// Overdue is derived each resolver pass; it never replaces Status.
	Overdue bool `json:"overdue"`

	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt doubles as the optimistic-concurrency marker for writes.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOverdue reports whether the step's due date has elapsed at the given
// instant and the step is still in a non-terminal status.
func (s *WorkflowStep) IsOverdue(now time.Time) bool {
	if s.DueDate == nil || s.Status.IsTerminal() {
		return false
	}

	return s.DueDate.Before(now)
}

// ClearBlocked resets the blocked-reason fields. Called on any transition out
// of Blocked.
func (s *WorkflowStep) ClearBlocked() {
	s.BlockedReason = nil
	s.BlockedDetail = ""
}

// ClearOverride resets the override fields. Called when the step reaches
// Complete through normal task progress.
func (s *WorkflowStep) ClearOverride() {
	s.IsReadinessOverridden = false
	s.OverrideRationale = ""
	s.OverriddenBy = ""
	s.OverriddenAt = nil
}
