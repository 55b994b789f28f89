package modules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"outreach_backend/internal/discovery"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/repository"
)

func fakeNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

// leadFilterAll matches every lead in the fake store.
func leadFilterAll() repository.LeadFilter { return repository.LeadFilter{} }

func TestDiscoveryCreatesContactsAndEnrolls(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)
	deps.Source = &fakeSource{candidates: []discovery.Candidate{
		{Name: "Smile Dental", Email: "info@smiledental.test", MarketingOptIn: true},
		{Name: "Vista Physio", Email: "hello@vistaphysio.test", MarketingOptIn: true},
		{Name: "No Email Clinic", MarketingOptIn: true},
	}}
	campaign := store.addCampaign(domain.Campaign{
		Name: "cold-q1", Channel: domain.ChannelEmail, Template: "discovery_intro",
		DailyLimit: 50, Status: domain.CampaignActive,
	})

	strat := NewDiscoveryStrategy(deps, 10*time.Minute)
	outcome, err := strat.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}

	if got := len(sender.sentTo()); got != 2 {
		t.Fatalf("expected 2 intros sent, got %d", got)
	}
	if outcome.Sent != 2 {
		t.Fatalf("expected outcome.Sent 2, got %d", outcome.Sent)
	}

	leads, _ := store.GetEligibleLeads(context.Background(), leadFilterAll())
	contacted := 0
	for _, lead := range leads {
		if lead.Status == domain.StatusContacted {
			contacted++
			if !lead.HasTag(tagDiscoveryIntroSent) {
				t.Fatalf("contacted lead missing intro tag")
			}
			if lead.LastContactedAt == nil {
				t.Fatalf("contacted lead missing lastContactedAt")
			}
		}
	}
	if contacted != 2 {
		t.Fatalf("expected 2 contacted leads, got %d", contacted)
	}

	links, _ := store.GetPendingLinks(context.Background(), campaign.ID, 10)
	if len(links) != 2 {
		t.Fatalf("expected 2 pending campaign links, got %d", len(links))
	}
}

func TestDiscoveryIsIdempotentAcrossTicks(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)
	// The source keeps returning the same candidate, as a directory poll
	// with overlapping pages would.
	deps.Source = &fakeSource{repeat: true, candidates: []discovery.Candidate{
		{Name: "Smile Dental", Email: "info@smiledental.test", MarketingOptIn: true},
	}}

	strat := NewDiscoveryStrategy(deps, 10*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	leads, _ := store.GetEligibleLeads(context.Background(), leadFilterAll())
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead for a repeated candidate, got %d", len(leads))
	}
	if got := len(sender.sentTo()); got != 1 {
		t.Fatalf("expected exactly 1 intro across ticks, got %d", got)
	}
}

func TestNurtureAdvancesSequenceSteps(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)

	contacted := fakeNow().Add(-3 * 24 * time.Hour)
	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusContacted, MarketingOptIn: true,
		Tags:            []string{"nurture_step_1_sent"},
		LastContactedAt: &contacted,
	})

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	outcome, err := strat.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if outcome.Sent != 1 {
		t.Fatalf("expected 1 send (step 2 at +3d), got %d", outcome.Sent)
	}

	got, _ := store.GetLead(context.Background(), lead.ID)
	if !got.HasTag("nurture_step_2_sent") {
		t.Fatalf("expected nurture_step_2_sent tag, tags=%v", got.Tags)
	}
	if got.HasTag("nurture_step_3_sent") {
		t.Fatalf("step 3 sent too early")
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("expected 1 transport call, got %d", len(sender.sentTo()))
	}
}

func TestNurtureTransportFailureRetriesNextTick(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)
	sender.failAt = 1

	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusContacted, MarketingOptIn: true,
	})

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err == nil {
		t.Fatalf("expected tick error on transport failure")
	}

	got, _ := store.GetLead(context.Background(), lead.ID)
	if got.HasTag("nurture_step_1_sent") {
		t.Fatalf("failed send must not mark the step completed")
	}

	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("retry tick: %v", err)
	}
	got, _ = store.GetLead(context.Background(), lead.ID)
	if !got.HasTag("nurture_step_1_sent") {
		t.Fatalf("retry tick should complete step 1")
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("expected exactly 1 delivered message, got %d", len(sender.sentTo()))
	}
}

func TestFailedSendStillConsumesBudget(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)
	sender.failAt = 1

	store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusContacted, MarketingOptIn: true,
	})

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err == nil {
		t.Fatalf("expected tick error on transport failure")
	}
	if got := deps.Budget.Snapshot().Sent; got != 1 {
		t.Fatalf("failed attempt must consume budget, Sent=%d", got)
	}

	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("retry tick: %v", err)
	}
	if got := deps.Budget.Snapshot().Sent; got != 2 {
		t.Fatalf("expected 2 attempts recorded, Sent=%d", got)
	}
}

func TestFailedCampaignSendConsumesBudget(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)
	sender.failAt = 1

	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusNew, MarketingOptIn: true,
	})
	campaign := store.addCampaign(domain.Campaign{
		Name: "cold-q1", Channel: domain.ChannelEmail, Template: "discovery_intro",
		DailyLimit: 50, Status: domain.CampaignActive,
	})
	if _, err := store.EnrollLeads(context.Background(), campaign.ID, []uuid.UUID{lead.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if got := deps.Budget.Snapshot().Sent; got != 1 {
		t.Fatalf("failed campaign attempt must consume budget, Sent=%d", got)
	}
	links, _ := store.GetPendingLinks(context.Background(), campaign.ID, 10)
	if len(links) != 0 {
		t.Fatalf("failed link must not stay pending, got %d pending", len(links))
	}
}

func TestNurtureReactivationAfterSequenceExhausted(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)

	contacted := fakeNow().Add(-15 * 24 * time.Hour)
	lead := store.addLead(domain.Lead{
		Name: "Vista Physio", Email: strPtr("hello@vistaphysio.test"),
		Status: domain.StatusWarm, MarketingOptIn: true,
		Tags: []string{
			"nurture_step_1_sent", "nurture_step_2_sent", "nurture_step_3_sent",
			"nurture_complete",
		},
		LastContactedAt: &contacted,
	})

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := store.GetLead(context.Background(), lead.ID)
	if !got.HasTag("reactivation_attempt_1_sent") {
		t.Fatalf("expected reactivation attempt 1, tags=%v", got.Tags)
	}
	if got.HasTag("unresponsive") {
		t.Fatalf("unresponsive applied before all attempts spent")
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.sentTo()))
	}
}

func TestReactivationExhaustionTagsUnresponsive(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, _ := testDeps(clk, 200)

	contacted := fakeNow().Add(-15 * 24 * time.Hour)
	lead := store.addLead(domain.Lead{
		Name: "Vista Physio", Email: strPtr("hello@vistaphysio.test"),
		Status: domain.StatusWarm, MarketingOptIn: true,
		Tags: []string{
			"nurture_complete",
			"reactivation_attempt_1_sent", "reactivation_attempt_2_sent",
		},
		LastContactedAt: &contacted,
	})

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := store.GetLead(context.Background(), lead.ID)
	if !got.HasTag("reactivation_attempt_3_sent") || !got.HasTag("unresponsive") {
		t.Fatalf("expected final attempt plus unresponsive, tags=%v", got.Tags)
	}

	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("post-exhaustion tick: %v", err)
	}
	got, _ = store.GetLead(context.Background(), lead.ID)
	count := 0
	for _, tag := range got.Tags {
		if tag == "unresponsive" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("unresponsive tag duplicated: %v", got.Tags)
	}
}

func TestCampaignAtDailyLimitSendsNothing(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)

	campaign := store.addCampaign(domain.Campaign{
		Name: "cold-q1", Channel: domain.ChannelEmail, Template: "discovery_intro",
		DailyLimit: 5, SentToday: 5, Status: domain.CampaignActive,
	})
	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusContacted, MarketingOptIn: true,
		Tags: []string{"nurture_complete", "unresponsive", "reactivation_attempt_1_sent", "reactivation_attempt_2_sent", "reactivation_attempt_3_sent"},
	})
	if _, err := store.EnrollLeads(context.Background(), campaign.ID, []uuid.UUID{lead.ID}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(sender.sentTo()) != 0 {
		t.Fatalf("campaign at daily limit must send zero, sent %d", len(sender.sentTo()))
	}
	links, _ := store.GetPendingLinks(context.Background(), campaign.ID, 10)
	if len(links) != 1 {
		t.Fatalf("link must stay pending for the next day, got %d pending", len(links))
	}
}

func TestBudgetExhaustionStopsMidBatch(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 2)

	for i := 0; i < 5; i++ {
		store.addLead(domain.Lead{
			Name: "Clinic", Email: strPtr("c@clinic.test"),
			Status: domain.StatusContacted, MarketingOptIn: true,
		})
	}

	strat := NewNurtureStrategy(deps, 2*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	// limit 2, pause threshold 0.70: the second send crosses it.
	if got := len(sender.sentTo()); got != 2 {
		t.Fatalf("expected sends to stop at the pause threshold, got %d", got)
	}
}

func TestDemoFollowUpTagsAndTracksConversation(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)

	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusReplied, MarketingOptIn: true,
	})

	strat := NewDemoStrategy(deps, time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := store.GetLead(context.Background(), lead.ID)
	if !got.HasTag("demo_followup_sent") {
		t.Fatalf("expected demo_followup_sent tag, tags=%v", got.Tags)
	}
	if got.Status != domain.StatusReplied {
		t.Fatalf("follow-up must not change status, got %s", got.Status)
	}
	if deps.Convos.Get(lead.ID).Attempts != 1 {
		t.Fatalf("expected 1 conversation attempt")
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sender.sentTo()))
	}

	// Tagged leads drop out of the scan; a second tick is a no-op.
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(sender.sentTo()) != 1 {
		t.Fatalf("follow-up duplicated on second tick")
	}
}

func TestRevenueWelcomesWonLeadsOnce(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, store, sender := testDeps(clk, 200)

	lead := store.addLead(domain.Lead{
		Name: "Smile Dental", Email: strPtr("info@smiledental.test"),
		Status: domain.StatusWon, MarketingOptIn: true,
	})
	deps.Convos.Get(lead.ID)

	strat := NewRevenueStrategy(deps, 5*time.Minute)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}

	if len(sender.sentTo()) != 1 {
		t.Fatalf("expected exactly 1 welcome, got %d", len(sender.sentTo()))
	}
	if deps.Convos.Len() != 0 {
		t.Fatalf("won lead must be evicted from the conversation cache")
	}
}

func TestClientSuccessDigestGoesToOps(t *testing.T) {
	clk := clockwork.NewFakeClockAt(fakeNow())
	deps, _, sender := testDeps(clk, 200)
	deps.Budget.RecordSend("nurture")

	statuses := func() []Status {
		return []Status{{Name: "nurture", State: StateRunning, SentToday: 1}}
	}
	strat := NewClientSuccessStrategy(deps, 24*time.Hour, "ops@agency.test", statuses)
	if _, err := strat.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	sent := sender.sentTo()
	if len(sent) != 1 || sent[0] != "ops@agency.test" {
		t.Fatalf("expected digest to ops mailbox, got %v", sent)
	}
	// Digest is internal, not recipient outreach.
	if deps.Budget.Snapshot().Sent != 1 {
		t.Fatalf("digest must not consume the send budget")
	}
}
