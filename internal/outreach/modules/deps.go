package modules

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"outreach_backend/internal/content"
	"outreach_backend/internal/discovery"
	"outreach_backend/internal/email"
	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach/budget"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/logger"
)

// Deps bundles the collaborators every strategy draws from. One Deps value
// is shared across all six modules; the governor and pacing engine inside it
// are the single source of truth for send permissions.
type Deps struct {
	Store   repository.Store
	Budget  *budget.Governor
	Pacing  *pacing.Engine
	Content content.Generator
	Sender  email.Sender
	Source  discovery.Source
	Convos  *ConversationCache
	Clock   clock.Clock
	Bus     events.Bus
	Log     *logger.Logger
}

// dispatch performs one governed send to a lead: budget gate, inter-send
// delay, content generation, transport. Every transport attempt counts
// against the module's budget whether or not delivery succeeds; MessageSent
// is published only on success. A false first return means the budget
// denied the send and the tick should stop consuming targets.
func (d *Deps) dispatch(ctx context.Context, module string, lead *domain.Lead, campaignID *uuid.UUID, tc content.Context) (bool, error) {
	if !d.Budget.CanSend() {
		return false, nil
	}
	if err := d.Pacing.WaitBetweenSends(ctx); err != nil {
		return true, fmt.Errorf("inter-send delay: %w", err)
	}

	msg, err := d.Content.Generate(ctx, tc)
	if err != nil {
		return true, fmt.Errorf("generate content: %w", err)
	}

	// Budget counts attempts, not deliveries.
	sendErr := d.Sender.Send(ctx, *lead.Email, msg.Subject, msg.Body)
	d.Budget.RecordSend(module)
	if sendErr != nil {
		return true, fmt.Errorf("send to lead %s: %w", lead.ID, sendErr)
	}

	d.Bus.Publish(context.Background(), events.MessageSent{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CampaignID: campaignID,
		Module:     module,
		Channel:    string(domain.ChannelEmail),
	})
	return true, nil
}

// persistLead writes the mutated tag set, status, and last-contact timestamp
// back to the store.
func (d *Deps) persistLead(ctx context.Context, lead *domain.Lead) error {
	tags := lead.Tags
	_, err := d.Store.UpdateLead(ctx, lead.ID, repository.UpdateLeadParams{
		Status:          &lead.Status,
		Tags:            &tags,
		LastContactedAt: lead.LastContactedAt,
	})
	if err != nil {
		return fmt.Errorf("persist lead %s: %w", lead.ID, err)
	}
	return nil
}

// publishStatusChange emits LeadStatusChanged after a persisted transition.
func (d *Deps) publishStatusChange(module string, leadID uuid.UUID, from, to domain.Status) {
	d.Bus.Publish(context.Background(), events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OldStatus: string(from),
		NewStatus: string(to),
		Module:    module,
	})
}
