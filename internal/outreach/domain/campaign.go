package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignStatus is the lifecycle status of a campaign. Transitions to
// completed/archived are external decisions, never made by the core.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignReady     CampaignStatus = "ready"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignArchived  CampaignStatus = "archived"
)

// Channel is the delivery channel of a campaign.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Campaign is a unit of recipient-directed automated outreach.
// Invariant: SentToday <= DailyLimit at all times while active.
type Campaign struct {
	ID         uuid.UUID
	Name       string
	Channel    Channel
	Template   string
	Subject    string
	DailyLimit int
	SentToday  int
	TotalSent  int
	Status     CampaignStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RemainingToday returns how many more messages the campaign may send today.
func (c *Campaign) RemainingToday() int {
	remaining := c.DailyLimit - c.SentToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsActive reports whether the campaign is eligible to send.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignActive
}

// LinkStatus is the delivery status of one lead's enrollment in a campaign.
type LinkStatus string

const (
	LinkPending LinkStatus = "pending"
	LinkSent    LinkStatus = "sent"
	LinkFailed  LinkStatus = "failed"
)

// CampaignRecipientLink records one lead's participation in one campaign.
// A lead appears at most once per campaign; a resolved link is never reused.
type CampaignRecipientLink struct {
	ID           uuid.UUID
	CampaignID   uuid.UUID
	LeadID       uuid.UUID
	Status       LinkStatus
	SentAt       *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}
