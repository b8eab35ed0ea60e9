package usage

import (
	"context"
	"time"

	"github.com/unosend/unosend/internal/domain"
)

// Repository persists usage counters. Increment must be atomic: concurrent
// calls for the same organization and period may never lose counts.
type Repository interface {
	// Increment adds n to the organization's counter for the period,
	// creating the row if it does not exist yet.
	Increment(ctx context.Context, orgID string, periodStart, periodEnd time.Time, n int) error

	// Get returns the usage row for the period, or nil when no emails
	// have been counted yet.
	Get(ctx context.Context, orgID string, periodStart time.Time) (*domain.UsagePeriod, error)
}
