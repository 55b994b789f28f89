package modules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outreach_backend/internal/content"
	"outreach_backend/internal/discovery"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/phone"
)

const tagDiscoveryIntroSent = "discovery_intro_sent"

// DiscoveryStrategy finds new clinic candidates, registers them as leads,
// enrolls them in the active cold-email campaign, and sends the first cold
// intro to the ones the budget and pacing allow.
type DiscoveryStrategy struct {
	deps     *Deps
	interval time.Duration
}

// NewDiscoveryStrategy builds the discovery module.
func NewDiscoveryStrategy(deps *Deps, interval time.Duration) *DiscoveryStrategy {
	return &DiscoveryStrategy{deps: deps, interval: interval}
}

func (s *DiscoveryStrategy) Name() string            { return "discovery" }
func (s *DiscoveryStrategy) Interval() time.Duration { return s.interval }

func (s *DiscoveryStrategy) Tick(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	created, err := s.ingestCandidates(ctx, &outcome)
	if err != nil {
		return outcome, err
	}
	if err := s.enroll(ctx, created); err != nil {
		return outcome, err
	}
	if err := s.sendIntros(ctx, &outcome); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ingestCandidates pulls one bounded batch from the source and persists the
// ones with a usable address. Candidate intake is not a send, so it is not
// budget-governed.
func (s *DiscoveryStrategy) ingestCandidates(ctx context.Context, outcome *Outcome) ([]domain.Lead, error) {
	candidates, err := s.deps.Source.FetchCandidates(ctx, s.deps.Pacing.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	created := make([]domain.Lead, 0, len(candidates))
	for _, cand := range candidates {
		lead, err := s.createLead(ctx, cand)
		if err != nil {
			return created, err
		}
		outcome.Processed++
		if lead != nil {
			created = append(created, *lead)
		}
	}
	return created, nil
}

// createLead persists one candidate. Sources return overlapping batches
// across polls, so a candidate whose email is already registered is skipped
// rather than inserted again.
func (s *DiscoveryStrategy) createLead(ctx context.Context, cand discovery.Candidate) (*domain.Lead, error) {
	if cand.Email == "" {
		return nil, nil
	}

	if _, err := s.deps.Store.GetLeadByEmail(ctx, cand.Email); err == nil {
		return nil, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up candidate %s: %w", cand.Email, err)
	}

	params := repository.CreateLeadParams{
		Name:           cand.Name,
		Email:          &cand.Email,
		MarketingOptIn: cand.MarketingOptIn,
		Tags:           []string{"from_discovery"},
	}
	if normalized := phone.NormalizeE164(cand.Phone); normalized != "" {
		params.Phone = &normalized
	}

	lead, err := s.deps.Store.CreateLead(ctx, params)
	if err != nil {
		// Lost a race to another writer; the lead exists either way.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil
		}
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return &lead, nil
}

// enroll attaches newly created leads to the first active email campaign.
// The unique recipient link constraint makes re-enrollment a no-op.
func (s *DiscoveryStrategy) enroll(ctx context.Context, leads []domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	campaigns, err := s.deps.Store.ListActiveCampaigns(ctx, domain.ChannelEmail)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}
	if len(campaigns) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(leads))
	for _, lead := range leads {
		if lead.MarketingOptIn {
			ids = append(ids, lead.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	enrolled, err := s.deps.Store.EnrollLeads(ctx, campaigns[0].ID, ids)
	if err != nil {
		return fmt.Errorf("enroll leads: %w", err)
	}
	s.deps.Log.Info("enrolled discovered leads", "campaign", campaigns[0].ID, "count", enrolled)
	return nil
}

// sendIntros contacts new opted-in leads that have not received the intro
// yet, transitioning each successful one to contacted.
func (s *DiscoveryStrategy) sendIntros(ctx context.Context, outcome *Outcome) error {
	leads, err := s.deps.Store.GetEligibleLeads(ctx, repository.LeadFilter{
		Statuses:     []domain.Status{domain.StatusNew},
		WithoutTag:   tagDiscoveryIntroSent,
		RequireOptIn: true,
		RequireEmail: true,
		Limit:        s.deps.Pacing.BatchSize(),
	})
	if err != nil {
		return fmt.Errorf("scan new leads: %w", err)
	}

	for i := range leads {
		lead := &leads[i]
		if !s.deps.Pacing.RecipientEligible(lead, pacing.WaveCold) {
			continue
		}

		allowed, err := s.deps.dispatch(ctx, s.Name(), lead, nil, content.Context{
			Template: "discovery_intro",
			LeadName: lead.Name,
		})
		if err != nil {
			return err
		}
		if !allowed {
			return nil
		}

		from := lead.Status
		lead.AddTag(tagDiscoveryIntroSent)
		domain.MarkContacted(lead, s.deps.Clock.Now())
		if err := s.deps.persistLead(ctx, lead); err != nil {
			return err
		}
		s.deps.publishStatusChange(s.Name(), lead.ID, from, lead.Status)
		outcome.Sent++
	}
	return nil
}
