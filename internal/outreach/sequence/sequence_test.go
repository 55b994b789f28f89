package sequence

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"outreach_backend/internal/outreach/domain"
)

func sequenceableLead() *domain.Lead {
	email := "owner@clinic.example"
	return &domain.Lead{
		Name:           "Test Clinic",
		Email:          &email,
		Status:         domain.StatusNew,
		MarketingOptIn: true,
	}
}

func TestNextStepWalksTheSequence(t *testing.T) {
	seq := Nurture()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	lead := sequenceableLead()

	step := seq.NextStep(lead)
	if step == nil || step.Number != 1 {
		t.Fatalf("expected step 1, got %+v", step)
	}
	if !seq.IsReady(lead, step, clk) {
		t.Fatalf("expected step 1 (day 0) to always be ready")
	}

	now := clk.Now()
	domain.MarkContacted(lead, now)
	seq.MarkStepCompleted(lead, step)

	step = seq.NextStep(lead)
	if step == nil || step.Number != 2 {
		t.Fatalf("expected step 2, got %+v", step)
	}
	if seq.IsReady(lead, step, clk) {
		t.Fatalf("expected step 2 not ready until 2 days have elapsed")
	}

	clk.Advance(48 * time.Hour)
	if !seq.IsReady(lead, step, clk) {
		t.Fatalf("expected step 2 ready after 2 days")
	}
}

func TestNextStepExclusions(t *testing.T) {
	seq := Nurture()

	noEmail := sequenceableLead()
	noEmail.Email = nil
	if seq.NextStep(noEmail) != nil {
		t.Fatalf("expected lead without email to be excluded")
	}

	optedOut := sequenceableLead()
	optedOut.MarketingOptIn = false
	if seq.NextStep(optedOut) != nil {
		t.Fatalf("expected opted-out lead to be excluded")
	}

	won := sequenceableLead()
	won.Status = domain.StatusWon
	if seq.NextStep(won) != nil {
		t.Fatalf("expected terminal lead to be excluded")
	}

	complete := sequenceableLead()
	complete.AddTag(seq.CompleteTag)
	if seq.NextStep(complete) != nil {
		t.Fatalf("expected sequence-complete lead to be excluded")
	}
}

func TestMarkStepCompletedIsIdempotent(t *testing.T) {
	seq := Nurture()
	lead := sequenceableLead()
	step := seq.NextStep(lead)

	seq.MarkStepCompleted(lead, step)
	tagCount := len(lead.Tags)
	seq.MarkStepCompleted(lead, step)

	if len(lead.Tags) != tagCount {
		t.Fatalf("expected second MarkStepCompleted to leave tags unchanged, got %v", lead.Tags)
	}

	if next := seq.NextStep(lead); next == nil || next.Number != 2 {
		t.Fatalf("expected re-scan to land on step 2, got %+v", next)
	}
}

func TestFinalStepAppliesCompleteTag(t *testing.T) {
	seq := Nurture()
	lead := sequenceableLead()

	for i := range seq.Steps {
		seq.MarkStepCompleted(lead, &seq.Steps[i])
	}

	if !lead.HasTag("nurture_complete") {
		t.Fatalf("expected final step to apply the sequence-complete tag")
	}
	if seq.NextStep(lead) != nil {
		t.Fatalf("expected completed sequence to exclude the lead permanently")
	}
}

func TestReactivationTagsUnresponsiveAfterLastAttempt(t *testing.T) {
	seq := Reactivation()
	lead := sequenceableLead()
	lead.Status = domain.StatusContacted

	for attempt := 1; attempt <= 3; attempt++ {
		step := seq.NextStep(lead)
		if step == nil || step.Number != attempt {
			t.Fatalf("expected attempt %d, got %+v", attempt, step)
		}
		seq.MarkStepCompleted(lead, step)
	}

	if !lead.HasTag("unresponsive") {
		t.Fatalf("expected unresponsive tag after the final attempt")
	}
	if seq.NextStep(lead) != nil {
		t.Fatalf("expected unresponsive lead to never be retried")
	}
}

func TestFailedSendLeavesStepRetryable(t *testing.T) {
	seq := Nurture()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	lead := sequenceableLead()

	// A failed send means MarkStepCompleted is never called; the same step
	// comes back on the next scan.
	step := seq.NextStep(lead)
	again := seq.NextStep(lead)
	if step.Number != again.Number {
		t.Fatalf("expected the same step to be retried, got %d then %d", step.Number, again.Number)
	}
	if !seq.IsReady(lead, again, clk) {
		t.Fatalf("expected retried step to stay ready")
	}
}
