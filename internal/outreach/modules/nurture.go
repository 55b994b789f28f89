package modules

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/internal/content"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/internal/outreach/sequence"
)

// NurtureStrategy advances leads through the multi-day nurture sequence,
// runs the slower reactivation wave over leads that finished nurturing
// without converting, and dispatches pending campaign recipient links.
type NurtureStrategy struct {
	deps         *Deps
	interval     time.Duration
	nurture      *sequence.Sequence
	reactivation *sequence.Sequence
}

// NewNurtureStrategy builds the nurture module with the default sequences.
func NewNurtureStrategy(deps *Deps, interval time.Duration) *NurtureStrategy {
	return &NurtureStrategy{
		deps:         deps,
		interval:     interval,
		nurture:      sequence.Nurture(),
		reactivation: sequence.Reactivation(),
	}
}

func (s *NurtureStrategy) Name() string            { return "nurture" }
func (s *NurtureStrategy) Interval() time.Duration { return s.interval }

func (s *NurtureStrategy) Tick(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	if err := s.runSequence(ctx, s.nurture, pacing.WaveCold, &outcome); err != nil {
		return outcome, err
	}
	if err := s.runSequence(ctx, s.reactivation, pacing.WaveReactivation, &outcome); err != nil {
		return outcome, err
	}
	if err := s.dispatchCampaigns(ctx, &outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// sequenceFilter selects the leads a sequence may still touch. Nurture
// works the active pipeline; reactivation only revisits leads the nurture
// sequence exhausted.
func (s *NurtureStrategy) sequenceFilter(seq *sequence.Sequence) repository.LeadFilter {
	filter := repository.LeadFilter{
		Statuses:     []domain.Status{domain.StatusContacted, domain.StatusWarm},
		WithoutTag:   seq.CompleteTag,
		RequireOptIn: true,
		RequireEmail: true,
		Limit:        s.deps.Pacing.BatchSize(),
	}
	if seq.Name == s.reactivation.Name {
		filter.Statuses = []domain.Status{domain.StatusContacted, domain.StatusWarm, domain.StatusReplied}
	}
	return filter
}

func (s *NurtureStrategy) runSequence(ctx context.Context, seq *sequence.Sequence, wave pacing.Wave, outcome *Outcome) error {
	leads, err := s.deps.Store.GetEligibleLeads(ctx, s.sequenceFilter(seq))
	if err != nil {
		return fmt.Errorf("scan %s leads: %w", seq.Name, err)
	}

	for i := range leads {
		lead := &leads[i]
		if seq.Name == s.reactivation.Name && !lead.HasTag(s.nurture.CompleteTag) {
			continue
		}

		step := seq.NextStep(lead)
		if step == nil {
			continue
		}
		if !seq.IsReady(lead, step, s.deps.Clock) {
			continue
		}
		if wave == pacing.WaveReactivation && !s.deps.Pacing.RecipientEligible(lead, wave) {
			continue
		}

		outcome.Processed++
		allowed, err := s.deps.dispatch(ctx, s.Name(), lead, nil, content.Context{
			Template: step.Template,
			LeadName: lead.Name,
			Step:     step.Number,
		})
		if err != nil {
			return err
		}
		if !allowed {
			return nil
		}

		seq.MarkStepCompleted(lead, step)
		domain.Touch(lead, s.deps.Clock.Now())
		if err := s.deps.persistLead(ctx, lead); err != nil {
			return err
		}
		outcome.Sent++
	}
	return nil
}

// dispatchCampaigns works off pending recipient links for every active email
// campaign, bounded per tick by both the batch size and the campaign's
// remaining daily capacity. A link is resolved exactly once: sent on
// success, failed on a transport error.
func (s *NurtureStrategy) dispatchCampaigns(ctx context.Context, outcome *Outcome) error {
	campaigns, err := s.deps.Store.ListActiveCampaigns(ctx, domain.ChannelEmail)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}

	for i := range campaigns {
		if err := s.dispatchCampaign(ctx, &campaigns[i], outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *NurtureStrategy) dispatchCampaign(ctx context.Context, campaign *domain.Campaign, outcome *Outcome) error {
	capacity := s.deps.Pacing.CampaignCapacity(campaign)
	if capacity > s.deps.Pacing.BatchSize() {
		capacity = s.deps.Pacing.BatchSize()
	}
	if capacity <= 0 {
		return nil
	}

	links, err := s.deps.Store.GetPendingLinks(ctx, campaign.ID, capacity)
	if err != nil {
		return fmt.Errorf("pending links for campaign %s: %w", campaign.ID, err)
	}

	for _, link := range links {
		lead, err := s.deps.Store.GetLead(ctx, link.LeadID)
		if err != nil {
			return fmt.Errorf("load link lead: %w", err)
		}
		outcome.Processed++

		if !lead.HasEmail() || !lead.MarketingOptIn || domain.IsTerminal(lead.Status) {
			if err := s.deps.Store.MarkLinkFailed(ctx, link.ID, "lead not contactable"); err != nil {
				return err
			}
			continue
		}
		if !s.deps.Pacing.RecipientEligible(&lead, pacing.WaveCold) {
			continue
		}
		if !s.deps.Budget.CanSend() {
			return nil
		}

		if err := s.sendLink(ctx, campaign, &link, &lead, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *NurtureStrategy) sendLink(ctx context.Context, campaign *domain.Campaign, link *domain.CampaignRecipientLink, lead *domain.Lead, outcome *Outcome) error {
	if err := s.deps.Pacing.WaitBetweenSends(ctx); err != nil {
		return fmt.Errorf("inter-send delay: %w", err)
	}

	msg, err := s.deps.Content.Generate(ctx, content.Context{
		Template: campaign.Template,
		LeadName: lead.Name,
	})
	if err != nil {
		return fmt.Errorf("generate campaign content: %w", err)
	}

	// Budget counts attempts, not deliveries.
	sendErr := s.deps.Sender.Send(ctx, *lead.Email, msg.Subject, msg.Body)
	s.deps.Budget.RecordSend(s.Name())
	if sendErr != nil {
		s.deps.Log.Warn("campaign send failed", "link", link.ID, "error", sendErr)
		return s.deps.Store.MarkLinkFailed(ctx, link.ID, sendErr.Error())
	}

	now := s.deps.Clock.Now()
	if err := s.deps.Store.MarkLinkSent(ctx, link.ID, now); err != nil {
		return err
	}
	if err := s.deps.Store.IncrementCampaignSent(ctx, campaign.ID); err != nil {
		return err
	}
	campaign.SentToday++

	from := lead.Status
	domain.MarkContacted(lead, now)
	domain.Touch(lead, now)
	if err := s.deps.persistLead(ctx, lead); err != nil {
		return err
	}
	if lead.Status != from {
		s.deps.publishStatusChange(s.Name(), lead.ID, from, lead.Status)
	}
	outcome.Sent++
	return nil
}
