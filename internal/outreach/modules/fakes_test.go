package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"outreach_backend/internal/content"
	"outreach_backend/internal/discovery"
	"outreach_backend/internal/events"
	"outreach_backend/internal/outreach/budget"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/pacing"
	"outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/logger"
)

type pacingConfig struct {
	cold         time.Duration
	reactivation time.Duration
	batch        int
	delay        time.Duration
}

func (c pacingConfig) GetColdCooldown() time.Duration         { return c.cold }
func (c pacingConfig) GetReactivationCooldown() time.Duration { return c.reactivation }
func (c pacingConfig) GetBatchSize() int                      { return c.batch }
func (c pacingConfig) GetInterSendDelay() time.Duration       { return c.delay }

type budgetConfig struct {
	limit int
}

func (c budgetConfig) GetDailySendLimit() int        { return c.limit }
func (c budgetConfig) GetPauseThreshold() float64    { return 0.70 }
func (c budgetConfig) GetHardStopThreshold() float64 { return 1.00 }

// fakeSender records sends. failAt(n) makes the n-th call (1-based) fail,
// panicAt makes it panic, to exercise the harness error paths.
type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	calls   int
	failAt  int
	panicAt int
}

func (s *fakeSender) Send(_ context.Context, toEmail, _ string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panicAt > 0 && s.calls == s.panicAt {
		panic("transport wedged")
	}
	if s.failAt > 0 && s.calls == s.failAt {
		return fmt.Errorf("smtp 451 temporary failure")
	}
	s.sent = append(s.sent, toEmail)
	return nil
}

func (s *fakeSender) sentTo() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// fakeSource yields its canned candidates once, then nothing. With repeat
// set it returns the same batch every call, like a directory poll that keeps
// seeing the same listings.
type fakeSource struct {
	mu         sync.Mutex
	candidates []discovery.Candidate
	repeat     bool
}

func (s *fakeSource) FetchCandidates(_ context.Context, limit int) ([]discovery.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.candidates) {
		limit = len(s.candidates)
	}
	batch := append([]discovery.Candidate(nil), s.candidates[:limit]...)
	if !s.repeat {
		s.candidates = s.candidates[limit:]
	}
	return batch, nil
}

// fakeStore is an in-memory repository.Store.
type fakeStore struct {
	mu        sync.Mutex
	leads     map[uuid.UUID]domain.Lead
	campaigns map[uuid.UUID]domain.Campaign
	links     map[uuid.UUID]domain.CampaignRecipientLink
	now       func() time.Time
}

func newFakeStore(clk clockwork.Clock) *fakeStore {
	return &fakeStore{
		leads:     make(map[uuid.UUID]domain.Lead),
		campaigns: make(map[uuid.UUID]domain.Campaign),
		links:     make(map[uuid.UUID]domain.CampaignRecipientLink),
		now:       clk.Now,
	}
}

func (f *fakeStore) addLead(lead domain.Lead) domain.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeStore) addCampaign(c domain.Campaign) domain.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.campaigns[c.ID] = c
	return c
}

func (f *fakeStore) GetEligibleLeads(_ context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Lead
	for _, lead := range f.leads {
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if lead.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.WithoutTag != "" && lead.HasTag(filter.WithoutTag) {
			continue
		}
		if filter.RequireOptIn && !lead.MarketingOptIn {
			continue
		}
		if filter.RequireEmail && !lead.HasEmail() {
			continue
		}
		out = append(out, lead)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) GetLeadByEmail(_ context.Context, email string) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lead := range f.leads {
		if lead.Email != nil && strings.EqualFold(*lead.Email, email) {
			return lead, nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (f *fakeStore) CreateLead(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if params.Email != nil {
		for _, existing := range f.leads {
			if existing.Email != nil && strings.EqualFold(*existing.Email, *params.Email) {
				return domain.Lead{}, repository.ErrDuplicateEmail
			}
		}
	}
	lead := domain.Lead{
		ID:             uuid.New(),
		ClinicID:       params.ClinicID,
		Name:           params.Name,
		Email:          params.Email,
		Phone:          params.Phone,
		Status:         domain.StatusNew,
		Tags:           append([]string(nil), params.Tags...),
		MarketingOptIn: params.MarketingOptIn,
		CreatedAt:      f.now(),
		UpdatedAt:      f.now(),
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeStore) UpdateLead(_ context.Context, id uuid.UUID, params repository.UpdateLeadParams) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	if params.Status != nil {
		lead.Status = *params.Status
	}
	if params.Tags != nil {
		lead.Tags = append([]string(nil), (*params.Tags)...)
	}
	if params.LastContactedAt != nil {
		t := *params.LastContactedAt
		lead.LastContactedAt = &t
	}
	lead.UpdatedAt = f.now()
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) GetCampaign(_ context.Context, id uuid.UUID) (domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return domain.Campaign{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListActiveCampaigns(_ context.Context, channel domain.Channel) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, c := range f.campaigns {
		if c.Status == domain.CampaignActive && c.Channel == channel {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) IncrementCampaignSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.SentToday >= c.DailyLimit {
		return fmt.Errorf("campaign %s daily limit reached", id)
	}
	c.SentToday++
	c.TotalSent++
	f.campaigns[id] = c
	return nil
}

func (f *fakeStore) ResetCampaignDailyCounters(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.campaigns {
		c.SentToday = 0
		f.campaigns[id] = c
	}
	return nil
}

func (f *fakeStore) EnrollLeads(_ context.Context, campaignID uuid.UUID, leadIDs []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	enrolled := 0
	for _, leadID := range leadIDs {
		exists := false
		for _, link := range f.links {
			if link.CampaignID == campaignID && link.LeadID == leadID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		link := domain.CampaignRecipientLink{
			ID:         uuid.New(),
			CampaignID: campaignID,
			LeadID:     leadID,
			Status:     domain.LinkPending,
			CreatedAt:  f.now(),
		}
		f.links[link.ID] = link
		enrolled++
	}
	return enrolled, nil
}

func (f *fakeStore) GetPendingLinks(_ context.Context, campaignID uuid.UUID, limit int) ([]domain.CampaignRecipientLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CampaignRecipientLink
	for _, link := range f.links {
		if link.CampaignID != campaignID || link.Status != domain.LinkPending {
			continue
		}
		out = append(out, link)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkLinkSent(_ context.Context, linkID uuid.UUID, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[linkID]
	if !ok || link.Status != domain.LinkPending {
		return repository.ErrNotFound
	}
	link.Status = domain.LinkSent
	link.SentAt = &sentAt
	f.links[linkID] = link
	return nil
}

func (f *fakeStore) MarkLinkFailed(_ context.Context, linkID uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[linkID]
	if !ok || link.Status != domain.LinkPending {
		return repository.ErrNotFound
	}
	link.Status = domain.LinkFailed
	link.ErrorMessage = &errorMessage
	f.links[linkID] = link
	return nil
}

// testDeps wires a full Deps value over fakes. The returned sender and store
// are the same instances held by the deps.
func testDeps(clk clockwork.Clock, dailyLimit int) (*Deps, *fakeStore, *fakeSender) {
	store := newFakeStore(clk)
	sender := &fakeSender{}
	log := logger.New("development")
	convos, _ := NewConversationCache()

	pcfg := pacingConfig{
		cold:         72 * time.Hour,
		reactivation: 14 * 24 * time.Hour,
		batch:        10,
		delay:        time.Millisecond,
	}

	bus := events.NewInMemoryBus(log)

	return &Deps{
		Store:   store,
		Budget:  budget.New(budgetConfig{limit: dailyLimit}, clk, bus, log),
		Pacing:  pacing.New(pcfg, clk),
		Content: content.StaticGenerator{},
		Sender:  sender,
		Convos:  convos,
		Clock:   clk,
		Bus:     bus,
		Log:     log,
	}, store, sender
}
