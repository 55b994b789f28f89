package modules

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StatusProvider returns the current status of every module. The
// orchestrator supplies it so the reporter sees its siblings without a
// circular dependency.
type StatusProvider func() []Status

// ClientSuccessStrategy compiles the daily operations digest: budget usage,
// per-module activity, and error counts, delivered to the ops mailbox. The
// digest is an internal notification, not recipient outreach, so it bypasses
// the budget governor.
type ClientSuccessStrategy struct {
	deps     *Deps
	interval time.Duration
	opsEmail string
	statuses StatusProvider
}

// NewClientSuccessStrategy builds the reporting module.
func NewClientSuccessStrategy(deps *Deps, interval time.Duration, opsEmail string, statuses StatusProvider) *ClientSuccessStrategy {
	return &ClientSuccessStrategy{
		deps:     deps,
		interval: interval,
		opsEmail: opsEmail,
		statuses: statuses,
	}
}

func (s *ClientSuccessStrategy) Name() string            { return "client_success" }
func (s *ClientSuccessStrategy) Interval() time.Duration { return s.interval }

func (s *ClientSuccessStrategy) Tick(ctx context.Context) (Outcome, error) {
	var outcome Outcome
	if s.opsEmail == "" {
		s.deps.Log.Warn("ops email not configured, skipping digest")
		return outcome, nil
	}

	subject, body := s.composeDigest()
	if err := s.deps.Sender.Send(ctx, s.opsEmail, subject, body); err != nil {
		return outcome, fmt.Errorf("send ops digest: %w", err)
	}

	outcome.Processed = 1
	outcome.Sent = 1
	return outcome, nil
}

func (s *ClientSuccessStrategy) composeDigest() (subject, body string) {
	snap := s.deps.Budget.Snapshot()
	day := snap.Day

	var b strings.Builder
	fmt.Fprintf(&b, "Daily outreach digest for %s\n\n", day)
	fmt.Fprintf(&b, "Budget: %d/%d sends used (%.0f%%), state %s\n\n",
		snap.Sent, snap.Limit, snap.UsedFraction*100, snap.State)

	b.WriteString("Per-module sends:\n")
	for module, count := range snap.ModuleCounts {
		fmt.Fprintf(&b, "  %-16s %d\n", module, count)
	}

	if s.statuses != nil {
		b.WriteString("\nModule status:\n")
		for _, st := range s.statuses() {
			fmt.Fprintf(&b, "  %-16s %-8s processed=%d sent=%d errors=%d\n",
				st.Name, st.State, st.ProcessedToday, st.SentToday, st.ErrorCount)
		}
	}

	return fmt.Sprintf("Outreach digest %s", day), b.String()
}
