package models

// DependencyEdge is a directed "step requires prerequisite step" relationship
// scoped to one case. The (CaseID, StepID, DependsOnStepID) triple is unique.
type DependencyEdge struct {
	CaseID          string `json:"case_id"            validate:"required"`
	StepID          string `json:"step_id"            validate:"required"`
	DependsOnStepID string `json:"depends_on_step_id" validate:"required,nefield=StepID"`
}
