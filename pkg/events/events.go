// Package events defines event types and structures for plan lifecycle
// notifications. Notification delivery itself is an external concern; the
// engine only publishes.
package events

import (
	"time"

	"github.com/probata/caseflow/pkg/models"
)

type EventType string

// Topic is the event stream all plan lifecycle events are published to.
const Topic = "caseflow.plan.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	PlanGeneratedEvent    EventType = "plan.generated"
	PlanRecalculatedEvent EventType = "plan.recalculated"
	StepOverriddenEvent   EventType = "step.overridden"
	StepBlockedEvent      EventType = "step.blocked"
	StepAdvancedEvent     EventType = "step.advanced"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TenantID  string         `json:"tenant_id"`
	CaseID    string         `json:"case_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type PlanGenerated struct {
	BaseEvent

	TemplateName string `json:"template_name"`
	StepCount    int    `json:"step_count"`
	EdgeCount    int    `json:"edge_count"`
}

func (e PlanGenerated) GetType() EventType {
	return PlanGeneratedEvent
}

type PlanRecalculated struct {
	BaseEvent

	ChangedStepIDs []string `json:"changed_step_ids,omitempty"`
}

func (e PlanRecalculated) GetType() EventType {
	return PlanRecalculatedEvent
}

// StepOverridden is the immutable audit record of one override call.
type StepOverridden struct {
	BaseEvent

	StepID       string            `json:"step_id"`
	ActorID      string            `json:"actor_id"`
	Rationale    string            `json:"rationale"`
	StatusBefore models.StepStatus `json:"status_before"`
	StatusAfter  models.StepStatus `json:"status_after"`
}

func (e StepOverridden) GetType() EventType {
	return StepOverriddenEvent
}

type StepBlocked struct {
	BaseEvent

	StepID string                   `json:"step_id"`
	Reason models.BlockedReasonCode `json:"reason"`
	Detail string                   `json:"detail,omitempty"`
}

func (e StepBlocked) GetType() EventType {
	return StepBlockedEvent
}

// StepAdvanced records an external task-progress transition.
type StepAdvanced struct {
	BaseEvent

	StepID       string            `json:"step_id"`
	ActorID      string            `json:"actor_id,omitempty"`
	StatusBefore models.StepStatus `json:"status_before"`
	StatusAfter  models.StepStatus `json:"status_after"`
}

func (e StepAdvanced) GetType() EventType {
	return StepAdvancedEvent
}
