// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// StageDeleted is published after a stage was removed. When the stage still
// held leads, TargetStageID names the stage they were reassigned to and
// MovedLeadIDs lists the leads that were moved.
type StageDeleted struct {
	BaseEvent
	OrganizationID uuid.UUID   `json:"organizationId"`
	StageID        uuid.UUID   `json:"stageId"`
	StageName      string      `json:"stageName"`
	TargetStageID  *uuid.UUID  `json:"targetStageId,omitempty"`
	TargetStageKey string      `json:"targetStageKey,omitempty"`
	MovedLeadIDs   []uuid.UUID `json:"movedLeadIds,omitempty"`
	ActorID        uuid.UUID   `json:"actorId"`
}

func (e StageDeleted) EventName() string { return "pipeline.stage.deleted" }

// StageOrdersReindexed is published after a full rewrite of a tenant's stage
// order keys.
type StageOrdersReindexed struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	StageCount     int       `json:"stageCount"`
}

func (e StageOrdersReindexed) EventName() string { return "pipeline.stage.orders_reindexed" }

// LeadStageChanged is published when a single lead moved between stages
// through the controlled mutation path.
type LeadStageChanged struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	LeadID         uuid.UUID `json:"leadId"`
	FromStageID    uuid.UUID `json:"fromStageId"`
	ToStageID      uuid.UUID `json:"toStageId"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "pipeline.lead.stage_changed" }
