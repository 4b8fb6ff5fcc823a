package models

// RecoveryAction is a role-gated suggested next step to resolve a blocked
// condition.
type RecoveryAction string

const (
	RecoveryActionUploadEvidence       RecoveryAction = "upload_evidence"
	RecoveryActionContactManager       RecoveryAction = "contact_manager"
	RecoveryActionRequestOverride      RecoveryAction = "request_override"
	RecoveryActionCompletePrerequisite RecoveryAction = "complete_prerequisite"
	RecoveryActionWaitForExternal      RecoveryAction = "wait_for_external"
	RecoveryActionCorrectData          RecoveryAction = "correct_data"
	RecoveryActionContactSupport       RecoveryAction = "contact_support"
	RecoveryActionUpdateBilling        RecoveryAction = "update_billing"
	RecoveryActionRequestPermission    RecoveryAction = "request_permission"
)

type recoveryActionText struct {
	label    string
	guidance string
}

var recoveryActionTexts = map[RecoveryAction]recoveryActionText{
	RecoveryActionUploadEvidence:       {"Upload evidence", "Attach the missing document or record to the step."},
	RecoveryActionContactManager:       {"Contact your manager", "Ask the case manager to review this step."},
	RecoveryActionRequestOverride:      {"Request an override", "A manager can assert this step Ready with a rationale."},
	RecoveryActionCompletePrerequisite: {"Complete prerequisite steps", "Finish the earlier steps this one depends on."},
	RecoveryActionWaitForExternal:      {"Wait for external party", "An outside organisation must respond before this step can proceed."},
	RecoveryActionCorrectData:          {"Correct case data", "Resolve the conflicting values recorded for this case."},
	RecoveryActionContactSupport:       {"Contact support", "Raise the issue with product support."},
	RecoveryActionUpdateBilling:        {"Update billing", "Settle the outstanding balance or update the payment method."},
	RecoveryActionRequestPermission:    {"Request permission", "Ask a tenant administrator to grant the required role."},
}

// Label returns the display label for the action.
func (a RecoveryAction) Label() string {
	return recoveryActionTexts[a].label
}

// Guidance returns the longer guidance text for the action.
func (a RecoveryAction) Guidance() string {
	return recoveryActionTexts[a].guidance
}

// RecoveryOption is a recovery action annotated for one requesting actor.
type RecoveryOption struct {
	Action      RecoveryAction `json:"action"`
	Label       string         `json:"label"`
	Guidance    string         `json:"guidance"`
	IsAvailable bool           `json:"is_available"`
}
