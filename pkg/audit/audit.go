// Package audit records immutable override history. The engine only emits;
// retention and querying belong to the audit collaborator.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/probata/caseflow/pkg/eventbus"
	"github.com/probata/caseflow/pkg/events"
	"github.com/probata/caseflow/pkg/models"
)

// Record is one immutable override entry.
type Record struct {
	TenantID     string
	CaseID       string
	StepID       string
	ActorID      string
	Rationale    string
	StatusBefore models.StepStatus
	StatusAfter  models.StepStatus
	Timestamp    time.Time
}

// Sink receives override records. Implementations must not mutate them.
type Sink interface {
	RecordOverride(ctx context.Context, record Record) error
}

// EventSink publishes override records to the plan event stream.
type EventSink struct {
	publisher eventbus.EventPublisher
	generate  func() string
}

// NewEventSink creates a sink backed by the event bus.
func NewEventSink(bus eventbus.EventBus) *EventSink {
	return &EventSink{publisher: bus, generate: bus.GenerateID}
}

func (s *EventSink) RecordOverride(ctx context.Context, record Record) error {
	event := events.StepOverridden{
		BaseEvent: events.BaseEvent{
			ID:        s.generate(),
			Type:      events.StepOverriddenEvent,
			Timestamp: record.Timestamp,
			TenantID:  record.TenantID,
			CaseID:    record.CaseID,
		},
		StepID:       record.StepID,
		ActorID:      record.ActorID,
		Rationale:    record.Rationale,
		StatusBefore: record.StatusBefore,
		StatusAfter:  record.StatusAfter,
	}

	return s.publisher.Publish(ctx, record.CaseID, event)
}

// LogSink writes override records to the structured log. Used when no event
// bus is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) RecordOverride(ctx context.Context, record Record) error {
	s.logger.InfoContext(ctx, "readiness override recorded",
		"tenant_id", record.TenantID,
		"case_id", record.CaseID,
		"step_id", record.StepID,
		"actor_id", record.ActorID,
		"rationale", record.Rationale,
		"status_before", record.StatusBefore,
		"status_after", record.StatusAfter,
		"timestamp", record.Timestamp,
	)

	return nil
}
