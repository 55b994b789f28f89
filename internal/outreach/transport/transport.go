// Package transport defines the request and response shapes of the
// orchestrator API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
)

type CreateLeadRequest struct {
	Name           string   `json:"name" validate:"required,min=2,max=200"`
	Email          string   `json:"email" validate:"omitempty,email"`
	Phone          string   `json:"phone" validate:"omitempty,min=6,max=32"`
	MarketingOptIn bool     `json:"marketingOptIn"`
	Tags           []string `json:"tags" validate:"omitempty,dive,min=1,max=64"`
}

type TransitionLeadRequest struct {
	Status string `json:"status" validate:"required,oneof=contacted warm replied demo_booked won lost"`
}

type ScheduleDigestRequest struct {
	RunAt string `json:"runAt" validate:"omitempty"` // RFC 3339; empty means now
}

type RunModuleRequest struct {
	Async       bool   `json:"async"`
	RequestedBy string `json:"requestedBy" validate:"omitempty,max=120"`
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Status          string     `json:"status"`
	Tags            []string   `json:"tags"`
	MarketingOptIn  bool       `json:"marketingOptIn"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:              lead.ID,
		Name:            lead.Name,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Status:          string(lead.Status),
		Tags:            lead.Tags,
		MarketingOptIn:  lead.MarketingOptIn,
		LastContactedAt: lead.LastContactedAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

type OrchestratorStatusResponse struct {
	Running bool           `json:"running"`
	Modules []ModuleStatus `json:"modules"`
}

type ModuleStatus struct {
	Name           string    `json:"name"`
	State          string    `json:"state"`
	LastCycleAt    time.Time `json:"lastCycleAt"`
	ProcessedToday int       `json:"processedToday"`
	SentToday      int       `json:"sentToday"`
	ErrorCount     int       `json:"errorCount"`
}

type BudgetResponse struct {
	Day          string         `json:"day"`
	Sent         int            `json:"sent"`
	Limit        int            `json:"limit"`
	UsedFraction float64        `json:"usedFraction"`
	State        string         `json:"state"`
	ModuleCounts map[string]int `json:"moduleCounts"`
}
