package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/probata/caseflow/pkg/events"
	"github.com/probata/caseflow/pkg/mocks"
	"github.com/probata/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var auditTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func overrideRecord() Record {
	return Record{
		TenantID:     "tenant-1",
		CaseID:       "case-1",
		StepID:       "step-1",
		ActorID:      "manager-1",
		Rationale:    "registrar accepts provisional notice",
		StatusBefore: models.StepStatusBlocked,
		StatusAfter:  models.StepStatusReady,
		Timestamp:    auditTime,
	}
}

func TestEventSink_PublishesOverrideRecord(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("GenerateID").Return("audit-1")
	bus.On("Publish", mock.Anything, "case-1", mock.AnythingOfType("events.StepOverridden")).Return(nil)

	sink := NewEventSink(bus)

	err := sink.RecordOverride(context.Background(), overrideRecord())
	require.NoError(t, err)

	bus.AssertExpectations(t)

	var published events.StepOverridden

	for _, call := range bus.Calls {
		if call.Method == "Publish" {
			published = call.Arguments.Get(2).(events.StepOverridden)
		}
	}

	assert.Equal(t, "audit-1", published.ID)
	assert.Equal(t, events.StepOverriddenEvent, published.Type)
	assert.Equal(t, "tenant-1", published.TenantID)
	assert.Equal(t, "step-1", published.StepID)
	assert.Equal(t, "manager-1", published.ActorID)
	assert.Equal(t, "registrar accepts provisional notice", published.Rationale)
	assert.Equal(t, models.StepStatusBlocked, published.StatusBefore)
	assert.Equal(t, models.StepStatusReady, published.StatusAfter)
	assert.Equal(t, auditTime, published.Timestamp)
}

func TestLogSink_RecordsRationaleAndTimestamp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	err := sink.RecordOverride(context.Background(), overrideRecord())
	require.NoError(t, err)

	line := buf.String()
	assert.Contains(t, line, "registrar accepts provisional notice")
	assert.Contains(t, line, "manager-1")
	assert.Contains(t, line, "2025-03-10T12:00:00")
	assert.Contains(t, line, "status_before=blocked")
	assert.Contains(t, line, "status_after=ready")
}
