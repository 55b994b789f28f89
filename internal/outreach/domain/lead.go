// Package domain provides core business rules for the outreach bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusContacted  Status = "contacted"
	StatusWarm       Status = "warm"
	StatusReplied    Status = "replied"
	StatusDemoBooked Status = "demo_booked"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// terminalStatuses are lead statuses where no further automated transition
// may occur. Only explicit external action can move a lead out of these.
var terminalStatuses = map[Status]bool{
	StatusWon:  true,
	StatusLost: true,
}

// validStatuses is the full status enum.
var validStatuses = map[Status]bool{
	StatusNew:        true,
	StatusContacted:  true,
	StatusWarm:       true,
	StatusReplied:    true,
	StatusDemoBooked: true,
	StatusWon:        true,
	StatusLost:       true,
}

// IsTerminal returns true if the status is terminal (won or lost).
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// IsValidStatus returns true if the status is one of the defined enum values.
func IsValidStatus(status Status) bool {
	return validStatuses[status]
}

// Lead is a contactable prospect or client tracked through the lifecycle.
type Lead struct {
	ID              uuid.UUID
	ClinicID        *uuid.UUID
	Name            string
	Email           *string
	Phone           *string
	Status          Status
	Tags            []string
	LastContactedAt *time.Time
	MarketingOptIn  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasEmail reports whether the lead has a non-empty email address.
func (l *Lead) HasEmail() bool {
	return l.Email != nil && *l.Email != ""
}

// HasTag reports whether the tag is present. Tags have set semantics;
// insertion order is irrelevant.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a tag. Adding an existing tag is a no-op.
func (l *Lead) AddTag(tag string) {
	if l.HasTag(tag) {
		return
	}
	l.Tags = append(l.Tags, tag)
}

// RemoveTag removes a tag if present.
func (l *Lead) RemoveTag(tag string) {
	for i, t := range l.Tags {
		if t == tag {
			l.Tags = append(l.Tags[:i], l.Tags[i+1:]...)
			return
		}
	}
}
