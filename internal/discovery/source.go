// Package discovery provides the pluggable candidate source consumed by the
// discovery module. The orchestration core assumes nothing about how
// candidates are found beyond "produces a bounded batch per call".
package discovery

import (
	"context"

	"github.com/brianvoe/gofakeit/v6"

	"outreach_backend/platform/phone"
)

// Candidate is a prospective clinic lead produced by a source.
type Candidate struct {
	Name           string
	Email          string
	Phone          string
	MarketingOptIn bool
}

// Source produces a bounded batch of candidate leads per call. A source may
// return fewer than limit, including zero, when it has nothing new.
type Source interface {
	FetchCandidates(ctx context.Context, limit int) ([]Candidate, error)
}

// FakeSource generates synthetic clinic candidates. It stands in for a real
// directory/scraping integration in development and tests.
type FakeSource struct {
	faker *gofakeit.Faker
}

// NewFakeSource creates a deterministic fake source for the given seed.
// Seed 0 yields a randomized source.
func NewFakeSource(seed int64) *FakeSource {
	return &FakeSource{faker: gofakeit.New(seed)}
}

func (s *FakeSource) FetchCandidates(_ context.Context, limit int) ([]Candidate, error) {
	candidates := make([]Candidate, 0, limit)
	for i := 0; i < limit; i++ {
		name := s.faker.Company() + " Clinic"
		candidates = append(candidates, Candidate{
			Name:           name,
			Email:          s.faker.Email(),
			Phone:          phone.NormalizeE164(s.faker.Phone()),
			MarketingOptIn: true,
		})
	}
	return candidates, nil
}
