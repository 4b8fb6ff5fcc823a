package models

// BlockedReasonCode is the canonical category explaining why a step cannot
// proceed. Exactly one code is attached to a blocked step.
type BlockedReasonCode string

const (
	BlockedReasonSystemError        BlockedReasonCode = "system_error"
	BlockedReasonIdentityOrAuth     BlockedReasonCode = "identity_or_auth"
	BlockedReasonPaymentOrBilling   BlockedReasonCode = "payment_or_billing"
	BlockedReasonPolicyRestriction  BlockedReasonCode = "policy_restriction"
	BlockedReasonRolePermission     BlockedReasonCode = "role_permission"
	BlockedReasonDataMismatch       BlockedReasonCode = "data_mismatch"
	BlockedReasonExternalDependency BlockedReasonCode = "external_dependency"
	BlockedReasonEvidenceMissing    BlockedReasonCode = "evidence_missing"
	BlockedReasonDeadlineRisk       BlockedReasonCode = "deadline_risk"
)

// BlockedReasonPrecedence orders reason codes most severe first. Classification
// evaluates candidate causes in this order and stops at the first match, so a
// missing-evidence condition never masks a billing hold or an outage.
var BlockedReasonPrecedence = []BlockedReasonCode{
	BlockedReasonSystemError,
	BlockedReasonIdentityOrAuth,
	BlockedReasonPaymentOrBilling,
	BlockedReasonPolicyRestriction,
	BlockedReasonRolePermission,
	BlockedReasonDataMismatch,
	BlockedReasonExternalDependency,
	BlockedReasonEvidenceMissing,
	BlockedReasonDeadlineRisk,
}

var blockedReasonLabels = map[BlockedReasonCode]string{
	BlockedReasonSystemError:        "System error",
	BlockedReasonIdentityOrAuth:     "Identity or sign-in issue",
	BlockedReasonPaymentOrBilling:   "Payment or billing issue",
	BlockedReasonPolicyRestriction:  "Policy restriction",
	BlockedReasonRolePermission:     "Missing role permission",
	BlockedReasonDataMismatch:       "Conflicting case data",
	BlockedReasonExternalDependency: "Waiting on external party",
	BlockedReasonEvidenceMissing:    "Evidence missing",
	BlockedReasonDeadlineRisk:       "Deadline at risk",
}

// Label returns the human-readable display label for the reason code.
func (c BlockedReasonCode) Label() string {
	if label, ok := blockedReasonLabels[c]; ok {
		return label
	}

	return string(c)
}

// IsValid reports whether the code is a known member of the enum.
func (c BlockedReasonCode) IsValid() bool {
	_, ok := blockedReasonLabels[c]

	return ok
}
