package plan

import (
	"github.com/probata/caseflow/pkg/models"
)

// recoveryCatalog maps each blocked reason to its recovery actions in display
// order. Kept declarative so the mapping stays independently testable.
var recoveryCatalog = map[models.BlockedReasonCode][]models.RecoveryAction{
	models.BlockedReasonEvidenceMissing:    {models.RecoveryActionCompletePrerequisite, models.RecoveryActionUploadEvidence, models.RecoveryActionContactManager},
	models.BlockedReasonExternalDependency: {models.RecoveryActionWaitForExternal, models.RecoveryActionContactSupport},
	models.BlockedReasonPolicyRestriction:  {models.RecoveryActionRequestOverride, models.RecoveryActionContactManager},
	models.BlockedReasonRolePermission:     {models.RecoveryActionRequestPermission, models.RecoveryActionContactManager},
	models.BlockedReasonDeadlineRisk:       {models.RecoveryActionContactManager, models.RecoveryActionRequestOverride},
	models.BlockedReasonPaymentOrBilling:   {models.RecoveryActionUpdateBilling, models.RecoveryActionContactSupport},
	models.BlockedReasonIdentityOrAuth:     {models.RecoveryActionContactSupport, models.RecoveryActionContactManager},
	models.BlockedReasonDataMismatch:       {models.RecoveryActionCorrectData, models.RecoveryActionContactManager},
	models.BlockedReasonSystemError:        {models.RecoveryActionContactSupport},
}

// available reports whether one actor may take one recovery action.
func available(action models.RecoveryAction, actor models.Actor) bool {
	switch action {
	case models.RecoveryActionRequestOverride, models.RecoveryActionUpdateBilling:
		return actor.CanOverride()
	case models.RecoveryActionUploadEvidence, models.RecoveryActionCorrectData:
		return actor.CanEdit()
	default:
		return actor.CanRead()
	}
}

// RecoveryOptions maps a blocked reason to its ordered recovery actions, each
// annotated with label, guidance and availability for the requesting actor.
func RecoveryOptions(code models.BlockedReasonCode, actor models.Actor) []models.RecoveryOption {
	actions := recoveryCatalog[code]
	options := make([]models.RecoveryOption, 0, len(actions))

	for _, action := range actions {
		options = append(options, models.RecoveryOption{
			Action:      action,
			Label:       action.Label(),
			Guidance:    action.Guidance(),
			IsAvailable: available(action, actor),
		})
	}

	return options
}
