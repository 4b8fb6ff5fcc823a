package plan

import (
	"testing"

	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionsOf(options []models.RecoveryOption) []models.RecoveryAction {
	actions := make([]models.RecoveryAction, 0, len(options))
	for _, option := range options {
		actions = append(actions, option.Action)
	}

	return actions
}

func TestRecoveryOptions_CatalogOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code models.BlockedReasonCode
		want []models.RecoveryAction
	}{
		{
			code: models.BlockedReasonEvidenceMissing,
			want: []models.RecoveryAction{models.RecoveryActionCompletePrerequisite, models.RecoveryActionUploadEvidence, models.RecoveryActionContactManager},
		},
		{
			code: models.BlockedReasonExternalDependency,
			want: []models.RecoveryAction{models.RecoveryActionWaitForExternal, models.RecoveryActionContactSupport},
		},
		{
			code: models.BlockedReasonPolicyRestriction,
			want: []models.RecoveryAction{models.RecoveryActionRequestOverride, models.RecoveryActionContactManager},
		},
		{
			code: models.BlockedReasonRolePermission,
			want: []models.RecoveryAction{models.RecoveryActionRequestPermission, models.RecoveryActionContactManager},
		},
		{
			code: models.BlockedReasonDeadlineRisk,
			want: []models.RecoveryAction{models.RecoveryActionContactManager, models.RecoveryActionRequestOverride},
		},
		{
			code: models.BlockedReasonPaymentOrBilling,
			want: []models.RecoveryAction{models.RecoveryActionUpdateBilling, models.RecoveryActionContactSupport},
		},
		{
			code: models.BlockedReasonIdentityOrAuth,
			want: []models.RecoveryAction{models.RecoveryActionContactSupport, models.RecoveryActionContactManager},
		},
		{
			code: models.BlockedReasonDataMismatch,
			want: []models.RecoveryAction{models.RecoveryActionCorrectData, models.RecoveryActionContactManager},
		},
		{
			code: models.BlockedReasonSystemError,
			want: []models.RecoveryAction{models.RecoveryActionContactSupport},
		},
	}

	actor := *testutil.CreateTestActor()

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := RecoveryOptions(tt.code, actor)

			assert.Equal(t, tt.want, actionsOf(got))
		})
	}
}

func TestRecoveryOptions_RoleGating(t *testing.T) {
	t.Parallel()

	reader := *testutil.CreateTestActor(testutil.WithRole(models.RoleReader))
	participant := *testutil.CreateTestActor(testutil.WithRole(models.RoleParticipant))
	manager := *testutil.CreateTestActor(testutil.WithRole(models.RoleManager))

	byAction := func(options []models.RecoveryOption, action models.RecoveryAction) models.RecoveryOption {
		for _, option := range options {
			if option.Action == action {
				return option
			}
		}

		t.Fatalf("action %s not offered", action)

		return models.RecoveryOption{}
	}

	// Overrides are manager-only; the option stays visible but unavailable.
	policy := RecoveryOptions(models.BlockedReasonPolicyRestriction, reader)
	assert.False(t, byAction(policy, models.RecoveryActionRequestOverride).IsAvailable)

	policy = RecoveryOptions(models.BlockedReasonPolicyRestriction, manager)
	assert.True(t, byAction(policy, models.RecoveryActionRequestOverride).IsAvailable)

	// Evidence upload needs edit capability.
	evidence := RecoveryOptions(models.BlockedReasonEvidenceMissing, reader)
	assert.False(t, byAction(evidence, models.RecoveryActionUploadEvidence).IsAvailable)

	evidence = RecoveryOptions(models.BlockedReasonEvidenceMissing, participant)
	assert.True(t, byAction(evidence, models.RecoveryActionUploadEvidence).IsAvailable)

	// Informational actions only need read access.
	assert.True(t, byAction(evidence, models.RecoveryActionContactManager).IsAvailable)
}

func TestRecoveryOptions_CarryLabelsAndGuidance(t *testing.T) {
	t.Parallel()

	options := RecoveryOptions(models.BlockedReasonSystemError, *testutil.CreateTestActor())

	require.Len(t, options, 1)
	assert.NotEmpty(t, options[0].Label)
	assert.NotEmpty(t, options[0].Guidance)
}
