package web_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/web"
	"github.com/stretchr/testify/assert"
)

func TestOverrideRequest_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	valid := web.OverrideRequest{
		TargetStatus: models.StepStatusReady,
		Rationale:    "registrar accepts provisional notice",
		ActorID:      "manager-1",
	}
	assert.NoError(t, validate.Struct(valid))

	missingRationale := valid
	missingRationale.Rationale = ""
	assert.Error(t, validate.Struct(missingRationale))

	badTarget := valid
	badTarget.TargetStatus = models.StepStatusComplete
	assert.Error(t, validate.Struct(badTarget))

	missingActor := valid
	missingActor.ActorID = ""
	assert.Error(t, validate.Struct(missingActor))
}

func TestAdvanceRequest_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	valid := web.AdvanceRequest{
		TargetStatus: models.StepStatusInProgress,
		ActorID:      "participant-1",
	}
	assert.NoError(t, validate.Struct(valid))

	// Ready and Blocked are resolver-owned; clients may not set them.
	badTarget := valid
	badTarget.TargetStatus = models.StepStatusReady
	assert.Error(t, validate.Struct(badTarget))
}
