package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/probata/caseflow/pkg/audit"
	"github.com/probata/caseflow/pkg/eventbus"
	"github.com/probata/caseflow/pkg/events"
	"github.com/probata/caseflow/pkg/locks"
	"github.com/probata/caseflow/pkg/models"
	"github.com/probata/caseflow/pkg/otelhelper"
	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/plan"
	"github.com/probata/caseflow/pkg/signals"
	"github.com/probata/caseflow/pkg/template"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Plan is the orchestrator facade over the readiness engine. It is the only
// component touching the persistence collaborator; every operation runs under
// the per-case exclusive scope.
type Plan struct {
	persistence persistence.Persistence
	fetcher     *signals.Fetcher
	auditSink   audit.Sink
	publisher   eventbus.EventPublisher
	locker      locks.Locker
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewPlan creates the plan service. The publisher may be nil when no event bus
// is configured; audit falls back to the structured log in that case.
func NewPlan(
	store persistence.Persistence,
	fetcher *signals.Fetcher,
	auditSink audit.Sink,
	publisher eventbus.EventPublisher,
	locker locks.Locker,
	logger *slog.Logger,
) *Plan {
	return &Plan{
		persistence: store,
		fetcher:     fetcher,
		auditSink:   auditSink,
		publisher:   publisher,
		locker:      locker,
		logger:      logger,
		tracer:      otel.Tracer("caseflow.services.plan"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock. Used by tests.
func (p *Plan) WithClock(now func() time.Time) *Plan {
	p.now = now

	return p
}

// WithTracer replaces the tracer installed by NewPlan. Used by tests.
func (p *Plan) WithTracer(tracer trace.Tracer) *Plan {
	p.tracer = tracer

	return p
}

// startSpan opens a span for one service operation with the service attribute
// attached.
func (p *Plan) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String(otelhelper.ServiceKey, "plan"))

	return otelhelper.StartSpan(ctx, p.tracer, name, attrs...)
}

// endSpan records err on the span, if any, then ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}

// HealthCheck checks the health of the persistence layer.
func (p *Plan) HealthCheck(ctx context.Context) (string, bool) {
	if p.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := p.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// GeneratePlan creates the step and edge set for a case from a template,
// replacing any existing plan, and returns the steps with computed status in
// evaluation order.
func (p *Plan) GeneratePlan(ctx context.Context, tenantID, caseID string, tmpl *models.PlanTemplate) (_ []*models.WorkflowStep, err error) {
	ctx, span := p.startSpan(ctx, "plan.service generate",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.CaseIDKey, caseID))
	defer func() { endSpan(span, err) }()

	if tmpl == nil {
		return nil, &ServiceError{Op: "GeneratePlan", Code: "TEMPLATE_REQUIRED", Err: ErrTemplateRequired}
	}

	err = template.Check(tmpl)
	if err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire case scope: %w", err)
	}
	defer unlock()

	now := p.now()
	steps, edges := p.materialize(tenantID, caseID, tmpl, now)

	result, err := p.resolve(ctx, tenantID, caseID, steps, edges, now)
	if err != nil {
		return nil, err
	}

	for _, step := range result.Steps {
		step.UpdatedAt = now
	}

	err = p.persistence.PlanRepository().ReplacePlan(ctx, tenantID, caseID, result.Steps, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to persist generated plan: %w", err)
	}

	p.publish(ctx, caseID, events.PlanGenerated{
		BaseEvent:    p.baseEvent(events.PlanGeneratedEvent, tenantID, caseID),
		TemplateName: tmpl.Name,
		StepCount:    len(result.Steps),
		EdgeCount:    len(edges),
	})

	p.logger.InfoContext(ctx, "plan generated",
		"tenant_id", tenantID, "case_id", caseID,
		"template", tmpl.Name, "steps", len(result.Steps), "edges", len(edges))

	return result.Steps, nil
}

// materialize turns template steps into workflow steps and dependency edges.
func (p *Plan) materialize(tenantID, caseID string, tmpl *models.PlanTemplate, now time.Time) ([]*models.WorkflowStep, []models.DependencyEdge) {
	idsByKey := make(map[string]string, len(tmpl.Steps))
	steps := make([]*models.WorkflowStep, 0, len(tmpl.Steps))

	for _, ts := range tmpl.Steps {
		step := &models.WorkflowStep{
			ID:              uuid.New().String(),
			TenantID:        tenantID,
			CaseID:          caseID,
			StepKey:         ts.Key,
			Title:           ts.Title,
			Sequence:        ts.Sequence,
			Status:          models.StepStatusNotStarted,
			DeadlineSource:  ts.DeadlineSource,
			AssignedActorID: ts.AssignedActorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if ts.DueInDays > 0 {
			due := now.AddDate(0, 0, ts.DueInDays)
			step.DueDate = &due
		}

		idsByKey[ts.Key] = step.ID
		steps = append(steps, step)
	}

	edges := make([]models.DependencyEdge, 0)

	for _, ts := range tmpl.Steps {
		for _, dep := range ts.DependsOn {
			edges = append(edges, models.DependencyEdge{
				CaseID:          caseID,
				StepID:          idsByKey[ts.Key],
				DependsOnStepID: idsByKey[dep],
			})
		}
	}

	return steps, edges
}

// RecalculateReadiness re-runs the resolver over the case's current state and
// persists the changed steps. Non-destructive; running it twice with no
// external change is a no-op the second time.
func (p *Plan) RecalculateReadiness(ctx context.Context, tenantID, caseID string) (_ []*models.WorkflowStep, err error) {
	ctx, span := p.startSpan(ctx, "plan.service recalculate",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.CaseIDKey, caseID))
	defer func() { endSpan(span, err) }()

	unlock, err := p.locker.Lock(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire case scope: %w", err)
	}
	defer unlock()

	return p.recalculateLocked(ctx, tenantID, caseID)
}

// recalculateLocked is the recalculation body; the caller holds the case scope.
func (p *Plan) recalculateLocked(ctx context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error) {
	repo := p.persistence.PlanRepository()

	steps, err := repo.StepsByCase(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}

	edges, err := repo.EdgesByCase(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}

	expected := make(map[string]time.Time, len(steps))
	for _, step := range steps {
		expected[step.ID] = step.UpdatedAt
	}

	now := p.now()

	result, err := p.resolve(ctx, tenantID, caseID, steps, edges, now)
	if err != nil {
		return nil, err
	}

	if len(result.Changed) == 0 {
		return result.Steps, nil
	}

	changedSet := make(map[string]bool, len(result.Changed))
	for _, id := range result.Changed {
		changedSet[id] = true
	}

	changedSteps := make([]*models.WorkflowStep, 0, len(result.Changed))

	for _, step := range result.Steps {
		if changedSet[step.ID] {
			step.UpdatedAt = now
			changedSteps = append(changedSteps, step)
		}
	}

	err = repo.UpdateSteps(ctx, tenantID, changedSteps, expected)
	if err != nil {
		return nil, err
	}

	p.publish(ctx, caseID, events.PlanRecalculated{
		BaseEvent:      p.baseEvent(events.PlanRecalculatedEvent, tenantID, caseID),
		ChangedStepIDs: result.Changed,
	})

	for _, step := range changedSteps {
		if step.Status == models.StepStatusBlocked && step.BlockedReason != nil {
			p.publish(ctx, caseID, events.StepBlocked{
				BaseEvent: p.baseEvent(events.StepBlockedEvent, tenantID, caseID),
				StepID:    step.ID,
				Reason:    *step.BlockedReason,
				Detail:    step.BlockedDetail,
			})
		}
	}

	return result.Steps, nil
}

// resolve loads classification signals and runs the resolver over a snapshot.
func (p *Plan) resolve(ctx context.Context, tenantID, caseID string, steps []*models.WorkflowStep, edges []models.DependencyEdge, now time.Time) (*plan.Result, error) {
	stepIDs := make([]string, 0, len(steps))
	for _, step := range steps {
		stepIDs = append(stepIDs, step.ID)
	}

	var sets map[string]plan.SignalSet
	if p.fetcher != nil {
		sets = p.fetcher.Fetch(ctx, tenantID, caseID, stepIDs)
	}

	result, err := plan.Resolve(plan.Snapshot{
		CaseID:  caseID,
		Steps:   steps,
		Edges:   edges,
		Signals: sets,
		Now:     now,
	})
	if err != nil {
		// Graph defects are fatal for this case's plan operations.
		p.logger.ErrorContext(ctx, "dependency graph integrity failure",
			"tenant_id", tenantID, "case_id", caseID, "error", err)

		return nil, err
	}

	return result, nil
}

// OverrideReadiness records a manual readiness assertion on one step.
func (p *Plan) OverrideReadiness(ctx context.Context, tenantID, caseID, stepID string, target models.StepStatus, rationale, actorID string) (_ *models.WorkflowStep, err error) {
	ctx, span := p.startSpan(ctx, "plan.service override",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.CaseIDKey, caseID),
		attribute.String(otelhelper.StepIDKey, stepID),
		attribute.String(otelhelper.ActorIDKey, actorID))
	defer func() { endSpan(span, err) }()

	actor, err := p.persistence.ActorRepository().ActorByID(ctx, tenantID, actorID)
	if err != nil {
		if persistence.IsActorNotFound(err) {
			// Capability cannot be established for an unknown actor.
			return nil, ErrNotAuthorized
		}

		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire case scope: %w", err)
	}
	defer unlock()

	repo := p.persistence.PlanRepository()

	step, err := repo.StepByID(ctx, tenantID, stepID)
	if err != nil {
		return nil, err
	}

	if step.CaseID != caseID {
		return nil, persistence.NewStepError("OverrideReadiness", stepID, persistence.ErrStepNotFound)
	}

	expected := step.UpdatedAt
	before := step.Status
	now := p.now()

	err = plan.ApplyOverride(step, target, rationale, *actor, now)
	if err != nil {
		return nil, err
	}

	step.Overdue = step.IsOverdue(now)
	step.UpdatedAt = now

	err = repo.UpdateStep(ctx, tenantID, step, expected)
	if err != nil {
		return nil, err
	}

	err = p.auditSink.RecordOverride(ctx, audit.Record{
		TenantID:     tenantID,
		CaseID:       caseID,
		StepID:       stepID,
		ActorID:      actorID,
		Rationale:    step.OverrideRationale,
		StatusBefore: before,
		StatusAfter:  step.Status,
		Timestamp:    now,
	})
	if err != nil {
		// The override is committed; a failing audit sink is logged, not
		// surfaced, so the caller never retries an applied override.
		p.logger.ErrorContext(ctx, "failed to record override audit entry",
			"case_id", caseID, "step_id", stepID, "error", err)
	}

	p.logger.InfoContext(ctx, "readiness overridden",
		"tenant_id", tenantID, "case_id", caseID, "step_id", stepID,
		"actor_id", actorID, "target", target)

	return step, nil
}

// AdvanceStep applies an external task-progress transition to one step and
// recalculates the case so dependents pick up the change.
func (p *Plan) AdvanceStep(ctx context.Context, tenantID, caseID, stepID string, target models.StepStatus, actorID string) (_ *models.WorkflowStep, err error) {
	ctx, span := p.startSpan(ctx, "plan.service advance",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.CaseIDKey, caseID),
		attribute.String(otelhelper.StepIDKey, stepID),
		attribute.String(otelhelper.ActorIDKey, actorID))
	defer func() { endSpan(span, err) }()

	actor, err := p.persistence.ActorRepository().ActorByID(ctx, tenantID, actorID)
	if err != nil {
		if persistence.IsActorNotFound(err) {
			return nil, ErrNotAuthorized
		}

		return nil, err
	}

	if !actor.CanEdit() {
		return nil, ErrNotAuthorized
	}

	unlock, err := p.locker.Lock(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire case scope: %w", err)
	}
	defer unlock()

	repo := p.persistence.PlanRepository()

	step, err := repo.StepByID(ctx, tenantID, stepID)
	if err != nil {
		return nil, err
	}

	if step.CaseID != caseID {
		return nil, persistence.NewStepError("AdvanceStep", stepID, persistence.ErrStepNotFound)
	}

	if !models.CanTransition(step.Status, target) {
		return nil, &ServiceError{
			Op:      "AdvanceStep",
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("cannot move step from %s to %s", step.Status, target),
			Err:     ErrInvalidTransition,
		}
	}

	expected := step.UpdatedAt
	before := step.Status
	now := p.now()

	step.Status = target
	step.ClearBlocked()
	plan.CompleteClearsOverride(step)
	step.Overdue = step.IsOverdue(now)
	step.UpdatedAt = now

	err = repo.UpdateStep(ctx, tenantID, step, expected)
	if err != nil {
		return nil, err
	}

	p.publish(ctx, caseID, events.StepAdvanced{
		BaseEvent:    p.baseEvent(events.StepAdvancedEvent, tenantID, caseID),
		StepID:       stepID,
		ActorID:      actorID,
		StatusBefore: before,
		StatusAfter:  target,
	})

	_, err = p.recalculateLocked(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}

	return repo.StepByID(ctx, tenantID, stepID)
}

// BlockedInfo is the blocked-state view of one step for one actor.
type BlockedInfo struct {
	ReasonCode     models.BlockedReasonCode `json:"reason_code"`
	ReasonLabel    string                   `json:"reason_label"`
	ReasonDetail   string                   `json:"reason_detail"`
	AllowedActions []models.RecoveryOption  `json:"allowed_actions"`
}

// GetBlockedInfo returns the blocked reason and role-gated recovery actions
// for one step, or nil when the step is not currently Blocked.
func (p *Plan) GetBlockedInfo(ctx context.Context, tenantID, stepID, actorID string) (_ *BlockedInfo, err error) {
	ctx, span := p.startSpan(ctx, "plan.service blocked_info",
		attribute.String(otelhelper.TenantIDKey, tenantID),
		attribute.String(otelhelper.StepIDKey, stepID),
		attribute.String(otelhelper.ActorIDKey, actorID))
	defer func() { endSpan(span, err) }()

	actor, err := p.persistence.ActorRepository().ActorByID(ctx, tenantID, actorID)
	if err != nil {
		if persistence.IsActorNotFound(err) {
			return nil, ErrNotAuthorized
		}

		return nil, err
	}

	if !actor.CanRead() {
		return nil, ErrNotAuthorized
	}

	step, err := p.persistence.PlanRepository().StepByID(ctx, tenantID, stepID)
	if err != nil {
		return nil, err
	}

	if step.Status != models.StepStatusBlocked || step.BlockedReason == nil {
		return nil, nil
	}

	code := *step.BlockedReason
	span.SetAttributes(attribute.String(otelhelper.ReasonKey, string(code)))

	return &BlockedInfo{
		ReasonCode:     code,
		ReasonLabel:    code.Label(),
		ReasonDetail:   step.BlockedDetail,
		AllowedActions: plan.RecoveryOptions(code, *actor),
	}, nil
}

// PlanByCase returns the case's steps in evaluation order with the Overdue
// flag freshly derived.
func (p *Plan) PlanByCase(ctx context.Context, tenantID, caseID string) ([]*models.WorkflowStep, error) {
	steps, err := p.persistence.PlanRepository().StepsByCase(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}

	now := p.now()
	for _, step := range steps {
		step.Overdue = step.IsOverdue(now)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Sequence != steps[j].Sequence {
			return steps[i].Sequence < steps[j].Sequence
		}

		return steps[i].StepKey < steps[j].StepKey
	})

	return steps, nil
}

func (p *Plan) baseEvent(eventType events.EventType, tenantID, caseID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: p.now(),
		TenantID:  tenantID,
		CaseID:    caseID,
	}
}

func (p *Plan) publish(ctx context.Context, key string, event eventbus.Event) {
	if p.publisher == nil {
		return
	}

	err := p.publisher.Publish(ctx, key, event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish plan event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
