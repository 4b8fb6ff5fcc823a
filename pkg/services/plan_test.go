package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/probata/caseflow/pkg/audit"
	"github.com/probata/caseflow/pkg/events"
	"github.com/probata/caseflow/pkg/locks"
	"github.com/probata/caseflow/pkg/mocks"
	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/otelhelper"
	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var serviceTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func estateTemplate() *models.PlanTemplate {
	return &models.PlanTemplate{
		Name: "intestate-estate",
		Steps: []models.TemplateStep{
			{Key: "collect-death-certificate", Title: "Collect death certificate", Sequence: 1, DueInDays: 14, DeadlineSource: "statutory"},
			{Key: "notify-registrar", Title: "Notify registrar", Sequence: 2, DependsOn: []string{"collect-death-certificate"}},
			{Key: "close-bank-accounts", Title: "Close bank accounts", Sequence: 3, DependsOn: []string{"notify-registrar"}},
		},
	}
}

// newTestService wires the service against file persistence and an in-process
// locker, with the test clock pinned.
func newTestService(t *testing.T) (*Plan, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	root := t.TempDir()
	store := file.NewPersistence(root)

	service := NewPlan(store, nil, audit.NewLogSink(logger), nil, locks.NewKeyedMutex(), logger).
		WithClock(func() time.Time { return serviceTime })

	return service, root
}

// defaultActors writes the tenant roster the file store reads from
// tenants/<tenant>/actors.json.
func defaultActors(t *testing.T, root string) {
	t.Helper()

	actors := []*models.Actor{
		{ID: "manager-1", TenantID: "tenant-1", Role: models.RoleManager},
		{ID: "participant-1", TenantID: "tenant-1", Role: models.RoleParticipant},
		{ID: "reader-1", TenantID: "tenant-1", Role: models.RoleReader},
	}

	data, err := json.Marshal(actors)
	require.NoError(t, err)

	path := filepath.Join(root, "tenants", "tenant-1", "actors.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func stepByKey(t *testing.T, steps []*models.WorkflowStep, key string) *models.WorkflowStep {
	t.Helper()

	for _, step := range steps {
		if step.StepKey == key {
			return step
		}
	}

	t.Fatalf("no step with key %s", key)

	return nil
}

func TestGeneratePlan(t *testing.T) {
	service, _ := newTestService(t)

	steps, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)
	require.Len(t, steps, 3)

	a := stepByKey(t, steps, "collect-death-certificate")
	b := stepByKey(t, steps, "notify-registrar")
	c := stepByKey(t, steps, "close-bank-accounts")

	// The initial pass already resolves readiness.
	assert.Equal(t, models.StepStatusReady, a.Status)
	assert.Equal(t, models.StepStatusBlocked, b.Status)
	assert.Equal(t, models.StepStatusBlocked, c.Status)

	require.NotNil(t, a.DueDate)
	assert.Equal(t, serviceTime.AddDate(0, 0, 14), *a.DueDate)
	assert.Equal(t, "statutory", a.DeadlineSource)
	assert.Nil(t, b.DueDate)
}

func TestGeneratePlan_NilTemplate(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", nil)

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestGeneratePlan_BadTemplateDependency(t *testing.T) {
	service, _ := newTestService(t)

	tmpl := estateTemplate()
	tmpl.Steps[1].DependsOn = []string{"no-such-step"}

	_, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", tmpl)

	assert.True(t, IsValidationError(err))
}

func TestGeneratePlan_ReplacesExistingPlan(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	second, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	// Regeneration replaces, never merges: fresh ids for every step.
	assert.NotEqual(t, first[0].ID, second[0].ID)

	current, err := service.PlanByCase(ctx, "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Len(t, current, 3)
}

func TestRecalculateReadiness_NoChangeIsANoOp(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	steps, err := service.RecalculateReadiness(ctx, "tenant-1", "case-1")
	require.NoError(t, err)

	for _, step := range steps {
		assert.Equal(t, serviceTime, step.UpdatedAt, step.StepKey)
	}
}

func TestAdvanceStep_UnblocksDependents(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	a := stepByKey(t, steps, "collect-death-certificate")

	_, err = service.AdvanceStep(ctx, "tenant-1", "case-1", a.ID, models.StepStatusInProgress, "participant-1")
	require.NoError(t, err)

	advanced, err := service.AdvanceStep(ctx, "tenant-1", "case-1", a.ID, models.StepStatusComplete, "participant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusComplete, advanced.Status)

	current, err := service.PlanByCase(ctx, "tenant-1", "case-1")
	require.NoError(t, err)

	// Completing the prerequisite frees the next step in the chain.
	assert.Equal(t, models.StepStatusReady, stepByKey(t, current, "notify-registrar").Status)
	assert.Equal(t, models.StepStatusBlocked, stepByKey(t, current, "close-bank-accounts").Status)
}

func TestAdvanceStep_InvalidTransition(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	a := stepByKey(t, steps, "collect-death-certificate")

	// Ready cannot jump straight to Complete.
	_, err = service.AdvanceStep(ctx, "tenant-1", "case-1", a.ID, models.StepStatusComplete, "participant-1")

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceStep_ReaderDenied(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	a := stepByKey(t, steps, "collect-death-certificate")

	_, err = service.AdvanceStep(ctx, "tenant-1", "case-1", a.ID, models.StepStatusInProgress, "reader-1")

	assert.True(t, IsAuthorizationError(err))
}

func TestOverrideReadiness_Manager(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	blocked := stepByKey(t, steps, "notify-registrar")

	overridden, err := service.OverrideReadiness(ctx, "tenant-1", "case-1", blocked.ID,
		models.StepStatusReady, "registrar accepts provisional notice", "manager-1")
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusReady, overridden.Status)
	assert.True(t, overridden.IsReadinessOverridden)
	assert.Equal(t, "manager-1", overridden.OverriddenBy)
	assert.Nil(t, overridden.BlockedReason)

	// A later recalculation must not undo the assertion.
	recalced, err := service.RecalculateReadiness(ctx, "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusReady, stepByKey(t, recalced, "notify-registrar").Status)
}

func TestOverrideReadiness_ReaderDenied(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	blocked := stepByKey(t, steps, "notify-registrar")

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-1", blocked.ID,
		models.StepStatusReady, "let me through", "reader-1")

	assert.True(t, IsAuthorizationError(err))
}

func TestOverrideReadiness_UnknownActorDenied(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-1", steps[0].ID,
		models.StepStatusReady, "who am i", "ghost-1")

	assert.True(t, IsAuthorizationError(err))
}

func TestOverrideReadiness_EmptyRationale(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-1", steps[0].ID,
		models.StepStatusReady, "  ", "manager-1")

	assert.True(t, IsValidationError(err))
}

func TestOverrideReadiness_WrongCase(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-2", steps[0].ID,
		models.StepStatusReady, "wrong case", "manager-1")

	assert.True(t, IsNotFound(err))
}

func TestAdvanceToComplete_ClearsOverride(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	blocked := stepByKey(t, steps, "notify-registrar")

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-1", blocked.ID,
		models.StepStatusReady, "registrar accepts provisional notice", "manager-1")
	require.NoError(t, err)

	_, err = service.AdvanceStep(ctx, "tenant-1", "case-1", blocked.ID, models.StepStatusInProgress, "participant-1")
	require.NoError(t, err)

	completed, err := service.AdvanceStep(ctx, "tenant-1", "case-1", blocked.ID, models.StepStatusComplete, "participant-1")
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusComplete, completed.Status)
	assert.False(t, completed.IsReadinessOverridden)
	assert.Empty(t, completed.OverrideRationale)
}

func TestGetBlockedInfo(t *testing.T) {
	service, root := newTestService(t)
	defaultActors(t, root)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	blocked := stepByKey(t, steps, "notify-registrar")
	ready := stepByKey(t, steps, "collect-death-certificate")

	info, err := service.GetBlockedInfo(ctx, "tenant-1", blocked.ID, "reader-1")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, models.BlockedReasonEvidenceMissing, info.ReasonCode)
	assert.Equal(t, "Evidence missing", info.ReasonLabel)
	assert.Contains(t, info.ReasonDetail, "Collect death certificate")
	require.NotEmpty(t, info.AllowedActions)

	// Readers see upload-evidence but cannot take it.
	for _, option := range info.AllowedActions {
		if option.Action == models.RecoveryActionUploadEvidence {
			assert.False(t, option.IsAvailable)
		}
	}

	// A step that is not Blocked has no blocked info.
	info, err = service.GetBlockedInfo(ctx, "tenant-1", ready.ID, "reader-1")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestPlanByCase_EvaluationOrder(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	steps, err := service.PlanByCase(ctx, "tenant-1", "case-1")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "collect-death-certificate", steps[0].StepKey)
	assert.Equal(t, "notify-registrar", steps[1].StepKey)
	assert.Equal(t, "close-bank-accounts", steps[2].StepKey)
}

func TestHealthCheck(t *testing.T) {
	service, _ := newTestService(t)

	message, healthy := service.HealthCheck(context.Background())

	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}

// newBusService wires the service against file persistence with a mock event
// bus serving as both the publisher and the audit sink backend.
func newBusService(t *testing.T) (*Plan, *mocks.MockEventBus, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	root := t.TempDir()
	store := file.NewPersistence(root)
	bus := &mocks.MockEventBus{}

	service := NewPlan(store, nil, audit.NewEventSink(bus), bus, locks.NewKeyedMutex(), logger).
		WithClock(func() time.Time { return serviceTime })

	return service, bus, root
}

func TestGeneratePlan_PublishesEvent(t *testing.T) {
	service, bus, _ := newBusService(t)
	bus.On("Publish", mock.Anything, "case-1", mock.AnythingOfType("events.PlanGenerated")).Return(nil)

	_, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	bus.AssertExpectations(t)

	published := bus.Calls[0].Arguments.Get(2).(events.PlanGenerated)
	assert.Equal(t, events.PlanGeneratedEvent, published.Type)
	assert.Equal(t, "tenant-1", published.TenantID)
	assert.Equal(t, "intestate-estate", published.TemplateName)
	assert.Equal(t, 3, published.StepCount)
	assert.Equal(t, 2, published.EdgeCount)
}

func TestOverrideReadiness_EmitsAuditEvent(t *testing.T) {
	service, bus, root := newBusService(t)
	defaultActors(t, root)
	bus.On("Publish", mock.Anything, "case-1", mock.Anything).Return(nil)
	bus.On("GenerateID").Return("audit-1")
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	blocked := stepByKey(t, steps, "notify-registrar")

	_, err = service.OverrideReadiness(ctx, "tenant-1", "case-1", blocked.ID,
		models.StepStatusReady, "registrar accepts provisional notice", "manager-1")
	require.NoError(t, err)

	var record events.StepOverridden

	found := false

	for _, call := range bus.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(2).(events.StepOverridden); ok {
			record = event
			found = true
		}
	}

	require.True(t, found, "no override record published")
	assert.Equal(t, "audit-1", record.ID)
	assert.Equal(t, blocked.ID, record.StepID)
	assert.Equal(t, "manager-1", record.ActorID)
	assert.Equal(t, "registrar accepts provisional notice", record.Rationale)
	assert.Equal(t, models.StepStatusBlocked, record.StatusBefore)
	assert.Equal(t, models.StepStatusReady, record.StatusAfter)
}

func TestRecalculateReadiness_PublishesStepBlocked(t *testing.T) {
	service, bus, root := newBusService(t)
	bus.On("Publish", mock.Anything, "case-1", mock.Anything).Return(nil)
	ctx := context.Background()

	steps, err := service.GeneratePlan(ctx, "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	// Drift the stored state so the next pass re-blocks the step: the
	// dependent marked Ready while its prerequisite is still open.
	drifted := stepByKey(t, steps, "notify-registrar")
	drifted.Status = models.StepStatusReady
	drifted.ClearBlocked()

	store := file.NewPersistence(root)
	require.NoError(t, store.PlanRepository().UpdateStep(ctx, "tenant-1", drifted, drifted.UpdatedAt))

	_, err = service.RecalculateReadiness(ctx, "tenant-1", "case-1")
	require.NoError(t, err)

	var blocked events.StepBlocked

	found := false

	for _, call := range bus.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(2).(events.StepBlocked); ok {
			blocked = event
			found = true
		}
	}

	require.True(t, found, "no step.blocked event published")
	assert.Equal(t, drifted.ID, blocked.StepID)
	assert.Equal(t, models.BlockedReasonEvidenceMissing, blocked.Reason)
	assert.Contains(t, blocked.Detail, "Collect death certificate")
}

func TestRecalculateReadiness_ConcurrentUpdateSurfaced(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := mocks.NewMockPersistence()

	stepA := &models.WorkflowStep{
		ID:        "step-a",
		TenantID:  "tenant-1",
		CaseID:    "case-1",
		StepKey:   "collect-death-certificate",
		Title:     "Collect death certificate",
		Sequence:  1,
		Status:    models.StepStatusNotStarted,
		CreatedAt: serviceTime,
		UpdatedAt: serviceTime,
	}

	store.PlanRepo.On("StepsByCase", mock.Anything, "tenant-1", "case-1").
		Return([]*models.WorkflowStep{stepA}, nil)
	store.PlanRepo.On("EdgesByCase", mock.Anything, "tenant-1", "case-1").
		Return([]models.DependencyEdge{}, nil)
	store.PlanRepo.On("UpdateSteps", mock.Anything, "tenant-1", mock.Anything, mock.Anything).
		Return(persistence.NewStepError("UpdateSteps", "step-a", persistence.ErrConcurrentUpdate))

	service := NewPlan(store, nil, audit.NewLogSink(logger), nil, locks.NewKeyedMutex(), logger).
		WithClock(func() time.Time { return serviceTime })

	_, err := service.RecalculateReadiness(context.Background(), "tenant-1", "case-1")

	require.Error(t, err)
	assert.True(t, persistence.IsConcurrentUpdate(err))
	store.PlanRepo.AssertExpectations(t)
}

func TestGeneratePlan_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	service, _ := newTestService(t)
	service.WithTracer(provider.Tracer("caseflow.services.plan"))

	_, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", estateTemplate())
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "plan.service generate", span.Name())
	assert.Contains(t, span.Attributes(), attribute.String(otelhelper.TenantIDKey, "tenant-1"))
	assert.Contains(t, span.Attributes(), attribute.String(otelhelper.CaseIDKey, "case-1"))
	assert.Contains(t, span.Attributes(), attribute.String(otelhelper.ServiceKey, "plan"))
}

func TestGeneratePlan_SpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	service, _ := newTestService(t)
	service.WithTracer(provider.Tracer("caseflow.services.plan"))

	_, err := service.GeneratePlan(context.Background(), "tenant-1", "case-1", nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events())
}
