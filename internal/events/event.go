// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"outreach_backend/platform/events"

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
// Budget Events
// =============================================================================

// BudgetThresholdCrossed is published at most once per threshold per
// accounting day, when the daily send counter first crosses it.
type BudgetThresholdCrossed struct {
	BaseEvent
	Threshold float64 `json:"threshold"`
	Used      int     `json:"used"`
	Limit     int     `json:"limit"`
	State     string  `json:"state"` // normal, paused, stopped
}

func (e BudgetThresholdCrossed) EventName() string { return "outreach.budget.threshold_crossed" }

// =============================================================================
// Module Events
// =============================================================================

// ModuleErrored is published when a module tick fails at the harness boundary.
type ModuleErrored struct {
	BaseEvent
	Module string `json:"module"`
	Error  string `json:"error"`
}

func (e ModuleErrored) EventName() string { return "outreach.module.errored" }

// =============================================================================
// Lead Events
// =============================================================================

// LeadStatusChanged is published after a lifecycle transition is persisted.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Module    string    `json:"module"`
}

func (e LeadStatusChanged) EventName() string { return "outreach.lead.status_changed" }

// MessageSent is published after a transport send attempt succeeds.
type MessageSent struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	CampaignID *uuid.UUID `json:"campaignId,omitempty"`
	Module     string     `json:"module"`
	Channel    string     `json:"channel"`
}

func (e MessageSent) EventName() string { return "outreach.message.sent" }
