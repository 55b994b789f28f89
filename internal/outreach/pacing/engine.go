// Package pacing implements per-recipient and per-campaign send throttles,
// independent of the global budget: cooldown windows between waves, daily
// campaign caps, bounded batch sizes, and the inter-send delay inside a tick.
package pacing

import (
	"context"

	"golang.org/x/time/rate"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/clock"
	"outreach_backend/platform/config"
)

// Wave is the kind of outreach wave being paced. Cold outreach and
// reactivation carry different cooldown windows.
type Wave int

const (
	WaveCold Wave = iota
	WaveReactivation
)

// Engine answers eligibility questions for one send attempt.
type Engine struct {
	cfg     config.PacingConfig
	clk     clock.Clock
	limiter *rate.Limiter
}

// New creates a pacing engine. The inter-send limiter allows one send
// immediately and then spaces subsequent sends by the configured delay.
func New(cfg config.PacingConfig, clk clock.Clock) *Engine {
	return &Engine{
		cfg:     cfg,
		clk:     clk,
		limiter: rate.NewLimiter(rate.Every(cfg.GetInterSendDelay()), 1),
	}
}

// RecipientEligible reports whether the lead may be contacted for the given
// wave. A never-contacted lead is immediately eligible. The boundary is
// inclusive: a lead contacted exactly one cooldown window ago is eligible.
func (e *Engine) RecipientEligible(lead *domain.Lead, wave Wave) bool {
	if lead.LastContactedAt == nil {
		return true
	}

	cooldown := e.cfg.GetColdCooldown()
	if wave == WaveReactivation {
		cooldown = e.cfg.GetReactivationCooldown()
	}

	return e.clk.Now().Sub(*lead.LastContactedAt) >= cooldown
}

// CampaignCapacity returns how many more messages the campaign may send
// today. Modules must check this before any transport call and stop once it
// reaches zero.
func (e *Engine) CampaignCapacity(c *domain.Campaign) int {
	if !c.IsActive() {
		return 0
	}
	return c.RemainingToday()
}

// BatchSize bounds how many targets one tick may process.
func (e *Engine) BatchSize() int {
	return e.cfg.GetBatchSize()
}

// WaitBetweenSends blocks for the inter-send delay between consecutive sends
// within one tick, or until the context is cancelled.
func (e *Engine) WaitBetweenSends(ctx context.Context) error {
	return e.limiter.Wait(ctx)
}
