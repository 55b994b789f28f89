package modules

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/internal/content"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
)

// ConversationStrategy nudges leads stuck at one pipeline stage with
// follow-up messages. The demo module works leads that replied but have not
// booked; the closer module works booked leads toward a decision. Replies
// and decisions arrive out of band, so the module only sends, tags, and
// tracks attempt counts in the conversation cache.
type ConversationStrategy struct {
	deps     *Deps
	interval time.Duration
	name     string
	stage    domain.Status
	template string
	sentTag  string
}

// NewDemoStrategy builds the demo-booking follow-up module.
func NewDemoStrategy(deps *Deps, interval time.Duration) *ConversationStrategy {
	return &ConversationStrategy{
		deps:     deps,
		interval: interval,
		name:     "demo",
		stage:    domain.StatusReplied,
		template: "demo_followup",
		sentTag:  "demo_followup_sent",
	}
}

// NewCloserStrategy builds the post-demo closer module.
func NewCloserStrategy(deps *Deps, interval time.Duration) *ConversationStrategy {
	return &ConversationStrategy{
		deps:     deps,
		interval: interval,
		name:     "closer",
		stage:    domain.StatusDemoBooked,
		template: "closer_followup",
		sentTag:  "closer_followup_sent",
	}
}

func (s *ConversationStrategy) Name() string            { return s.name }
func (s *ConversationStrategy) Interval() time.Duration { return s.interval }

func (s *ConversationStrategy) Tick(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	leads, err := s.deps.Store.GetEligibleLeads(ctx, repository.LeadFilter{
		Statuses:     []domain.Status{s.stage},
		WithoutTag:   s.sentTag,
		RequireOptIn: true,
		RequireEmail: true,
		Limit:        s.deps.Pacing.BatchSize(),
	})
	if err != nil {
		return outcome, fmt.Errorf("scan %s leads: %w", s.stage, err)
	}

	for i := range leads {
		lead := &leads[i]
		if domain.IsTerminal(lead.Status) {
			s.deps.Convos.Evict(lead.ID)
			continue
		}
		if !s.deps.Pacing.RecipientEligible(lead, pacing.WaveCold) {
			continue
		}

		outcome.Processed++
		convo := s.deps.Convos.Get(lead.ID)
		allowed, err := s.deps.dispatch(ctx, s.name, lead, nil, content.Context{
			Template: s.template,
			LeadName: lead.Name,
			Step:     convo.Attempts + 1,
		})
		if err != nil {
			return outcome, err
		}
		if !allowed {
			return outcome, nil
		}

		now := s.deps.Clock.Now()
		s.deps.Convos.Record(lead.ID, s.template, now)
		lead.AddTag(s.sentTag)
		domain.Touch(lead, now)
		if err := s.deps.persistLead(ctx, lead); err != nil {
			return outcome, err
		}
		outcome.Sent++
	}
	return outcome, nil
}
