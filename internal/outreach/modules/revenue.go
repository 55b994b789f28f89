package modules

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/internal/content"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
)

const tagWelcomeSent = "revenue_welcome_sent"

// RevenueStrategy reacts to newly won deals: each won lead gets a single
// onboarding welcome message and is evicted from the conversation cache.
// Payment processing itself lives outside the orchestrator.
type RevenueStrategy struct {
	deps     *Deps
	interval time.Duration
}

// NewRevenueStrategy builds the revenue module.
func NewRevenueStrategy(deps *Deps, interval time.Duration) *RevenueStrategy {
	return &RevenueStrategy{deps: deps, interval: interval}
}

func (s *RevenueStrategy) Name() string            { return "revenue" }
func (s *RevenueStrategy) Interval() time.Duration { return s.interval }

func (s *RevenueStrategy) Tick(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	leads, err := s.deps.Store.GetEligibleLeads(ctx, repository.LeadFilter{
		Statuses:     []domain.Status{domain.StatusWon},
		WithoutTag:   tagWelcomeSent,
		RequireEmail: true,
		Limit:        s.deps.Pacing.BatchSize(),
	})
	if err != nil {
		return outcome, fmt.Errorf("scan won leads: %w", err)
	}

	for i := range leads {
		lead := &leads[i]
		outcome.Processed++
		s.deps.Convos.Evict(lead.ID)

		allowed, err := s.deps.dispatch(ctx, s.Name(), lead, nil, content.Context{
			Template: "revenue_welcome",
			LeadName: lead.Name,
		})
		if err != nil {
			return outcome, err
		}
		if !allowed {
			return outcome, nil
		}

		lead.AddTag(tagWelcomeSent)
		if err := s.deps.persistLead(ctx, lead); err != nil {
			return outcome, err
		}
		outcome.Sent++
	}
	return outcome, nil
}
