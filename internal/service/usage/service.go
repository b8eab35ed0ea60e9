package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/unosend/unosend/internal/domain"
)

// Service records sent-email counts against monthly billing periods.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a usage service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecordSent counts n sent emails for the organization in the current
// calendar month.
func (s *Service) RecordSent(ctx context.Context, orgID string, n int) error {
	if n <= 0 {
		return nil
	}
	start, end := domain.PeriodBounds(s.now())
	if err := s.repo.Increment(ctx, orgID, start, end, n); err != nil {
		return fmt.Errorf("incrementing usage for org %s: %w", orgID, err)
	}
	return nil
}

// CurrentPeriod returns the organization's usage for the current month.
// A period with zero sends returns a zero-valued UsagePeriod rather
// than an error.
func (s *Service) CurrentPeriod(ctx context.Context, orgID string) (*domain.UsagePeriod, error) {
	start, end := domain.PeriodBounds(s.now())
	u, err := s.repo.Get(ctx, orgID, start)
	if err != nil {
		return nil, fmt.Errorf("loading usage for org %s: %w", orgID, err)
	}
	if u == nil {
		return &domain.UsagePeriod{
			OrganizationID: orgID,
			PeriodStart:    start,
			PeriodEnd:      end,
		}, nil
	}
	return u, nil
}
