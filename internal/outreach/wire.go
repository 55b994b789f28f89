package outreach

import (
	"context"

	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach/modules"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// BuildRunners constructs the six module runners in their fixed start order:
// discovery, nurture, demo, closer, revenue, client success. The client
// success reporter reads its siblings through the orchestrator built on top
// of these runners, so the status provider is resolved lazily.
func BuildRunners(cfg config.OrchestratorConfig, opsEmail string, deps *modules.Deps, bus events.Bus, clk clock.Clock, log *logger.Logger, statuses modules.StatusProvider) []*modules.Runner {
	strategies := []modules.Strategy{
		modules.NewDiscoveryStrategy(deps, cfg.GetDiscoveryInterval()),
		modules.NewNurtureStrategy(deps, cfg.GetNurtureInterval()),
		modules.NewDemoStrategy(deps, cfg.GetConversationInterval()),
		modules.NewCloserStrategy(deps, cfg.GetConversationInterval()),
		modules.NewRevenueStrategy(deps, cfg.GetRevenueInterval()),
		modules.NewClientSuccessStrategy(deps, cfg.GetClientSuccessInterval(), opsEmail, statuses),
	}

	runners := make([]*modules.Runner, 0, len(strategies))
	for _, strat := range strategies {
		runners = append(runners, modules.NewRunner(strat, clk, bus, log))
	}
	return runners
}

// CampaignDayReset zeroes per-campaign daily counters at each local
// midnight so campaigns regain capacity with the new accounting day.
type CampaignDayReset struct {
	store repository.Store
	clk   clock.Clock
	log   *logger.Logger
}

// NewCampaignDayReset builds the midnight reset loop.
func NewCampaignDayReset(store repository.Store, clk clock.Clock, log *logger.Logger) *CampaignDayReset {
	return &CampaignDayReset{store: store, clk: clk, log: log.WithModule("campaign_reset")}
}

// Run blocks until the context is cancelled, resetting counters at each
// midnight boundary.
func (r *CampaignDayReset) Run(ctx context.Context) error {
	for {
		wait := clock.NextMidnight(r.clk.Now()).Sub(r.clk.Now())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clk.After(wait):
		}

		if err := r.store.ResetCampaignDailyCounters(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error("campaign counter reset failed", "error", err)
			continue
		}
		r.log.Info("campaign daily counters reset")
	}
}
