package web

import (
	"github.com/probata/caseflow/pkg/models"
)

// GeneratePlanRequest is the body of POST /cases/:caseID/plan. The template is
// the externally authored playbook; the engine validates shape and
// consistency but never invents step content.
type GeneratePlanRequest struct {
	Template models.PlanTemplate `json:"template" validate:"required"`
}

// OverrideRequest is the body of POST /cases/:caseID/steps/:stepID/override.
type OverrideRequest struct {
	TargetStatus models.StepStatus `json:"target_status" validate:"required,oneof=ready blocked"`
	Rationale    string            `json:"rationale"     validate:"required"`
	ActorID      string            `json:"actor_id"      validate:"required"`
}

// AdvanceRequest is the body of POST /cases/:caseID/steps/:stepID/advance.
type AdvanceRequest struct {
	TargetStatus models.StepStatus `json:"target_status" validate:"required,oneof=in_progress awaiting_evidence complete skipped"`
	ActorID      string            `json:"actor_id"      validate:"required"`
}

// PlanResponse wraps a case's ordered step list.
type PlanResponse struct {
	CaseID string                  `json:"case_id"`
	Steps  []*models.WorkflowStep  `json:"steps"`
}
