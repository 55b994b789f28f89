// Package sequence computes the next eligible step of a multi-day outreach
// sequence for a lead. Progress is derived entirely from the lead's tag set
// and last-contact timestamp, so the sequencer is stateless and re-running a
// scan never double-sends a completed step.
package sequence

import (
	"fmt"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/clock"
)

// Step is one message in an ordered, idempotently-tracked sequence.
type Step struct {
	Number    int
	DayOffset int    // days since last contact before the step becomes ready
	Tag       string // completion tag applied after a successful send
	Template  string // content key for generation and fallback lookup
}

// Sequence is an ordered set of steps plus the tag that permanently
// excludes a lead once the final step has been sent.
type Sequence struct {
	Name        string
	Steps       []Step
	CompleteTag string
}

// Nurture is the default 3-step nurture cadence at days 0, 2, and 5.
func Nurture() *Sequence {
	return &Sequence{
		Name:        "nurture",
		CompleteTag: "nurture_complete",
		Steps: []Step{
			{Number: 1, DayOffset: 0, Tag: "nurture_step_1_sent", Template: "nurture_intro"},
			{Number: 2, DayOffset: 2, Tag: "nurture_step_2_sent", Template: "nurture_value"},
			{Number: 3, DayOffset: 5, Tag: "nurture_step_3_sent", Template: "nurture_close"},
		},
	}
}

// Reactivation is the dormant-client wave: up to 3 attempts, 14 days apart.
// Its complete tag is "unresponsive": once all attempts are spent the lead is
// never retried by automation, only a manual action can re-include it.
func Reactivation() *Sequence {
	steps := make([]Step, 0, 3)
	for attempt := 1; attempt <= 3; attempt++ {
		offset := 0
		if attempt > 1 {
			offset = 14
		}
		steps = append(steps, Step{
			Number:    attempt,
			DayOffset: offset,
			Tag:       fmt.Sprintf("reactivation_attempt_%d_sent", attempt),
			Template:  "reactivation",
		})
	}
	return &Sequence{
		Name:        "reactivation",
		CompleteTag: "unresponsive",
		Steps:       steps,
	}
}

// NextStep returns the first step whose completion tag is absent, or nil if
// the lead is not sequenceable: no email, opted out, terminal status, already
// carrying the complete tag, or all steps done.
func (s *Sequence) NextStep(lead *domain.Lead) *Step {
	if !lead.HasEmail() || !lead.MarketingOptIn {
		return nil
	}
	if domain.IsTerminal(lead.Status) {
		return nil
	}
	if lead.HasTag(s.CompleteTag) {
		return nil
	}

	for i := range s.Steps {
		if !lead.HasTag(s.Steps[i].Tag) {
			return &s.Steps[i]
		}
	}
	return nil
}

// IsReady reports whether the step's time gate has elapsed. The first step
// is always ready; later steps require the configured number of days since
// the lead was last contacted. A lead with no recorded contact is ready.
func (s *Sequence) IsReady(lead *domain.Lead, step *Step, clk clock.Clock) bool {
	if step.DayOffset == 0 {
		return true
	}
	if lead.LastContactedAt == nil {
		return true
	}
	return clock.DaysSince(clk.Now(), *lead.LastContactedAt) >= step.DayOffset
}

// MarkStepCompleted idempotently applies the step's completion tag. When the
// final step completes, the sequence-complete tag is applied as well.
func (s *Sequence) MarkStepCompleted(lead *domain.Lead, step *Step) {
	lead.AddTag(step.Tag)
	if step.Number == s.Steps[len(s.Steps)-1].Number {
		lead.AddTag(s.CompleteTag)
	}
}
