package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
)

// LeadFilter narrows GetEligibleLeads scans. Zero values mean "no
// constraint"; Limit must be positive.
type LeadFilter struct {
	Statuses     []domain.Status
	WithoutTag   string // exclude leads already carrying this tag
	RequireOptIn bool
	RequireEmail bool
	Limit        int
}

// UpdateLeadParams is a partial lead update. Nil fields are left untouched.
type UpdateLeadParams struct {
	Status          *domain.Status
	Tags            *[]string
	LastContactedAt *time.Time
}

// CreateLeadParams creates a discovered or imported lead.
type CreateLeadParams struct {
	ClinicID       *uuid.UUID
	Name           string
	Email          *string
	Phone          *string
	MarketingOptIn bool
	Tags           []string
}

// Store is the narrow storage interface the orchestration core consumes.
// The pgx Repository implements it; tests substitute an in-memory fake.
type Store interface {
	GetEligibleLeads(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (domain.Lead, error)
	CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	UpdateLead(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error)

	GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error)
	ListActiveCampaigns(ctx context.Context, channel domain.Channel) ([]domain.Campaign, error)
	IncrementCampaignSent(ctx context.Context, id uuid.UUID) error
	ResetCampaignDailyCounters(ctx context.Context) error

	EnrollLeads(ctx context.Context, campaignID uuid.UUID, leadIDs []uuid.UUID) (int, error)
	GetPendingLinks(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.CampaignRecipientLink, error)
	MarkLinkSent(ctx context.Context, linkID uuid.UUID, sentAt time.Time) error
	MarkLinkFailed(ctx context.Context, linkID uuid.UUID, errorMessage string) error
}
