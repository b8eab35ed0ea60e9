package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unosend/unosend/internal/domain"
)

// UsageRepo implements usage.Repository against PostgreSQL.
type UsageRepo struct{ db *sql.DB }

// NewUsageRepo creates a Postgres-backed usage repository.
func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{db: db} }

// Increment upserts the period counter in a single statement. The unique
// constraint on (organization_id, period_start) plus ON CONFLICT makes
// concurrent increments safe: no counts are lost to read-modify-write races.
func (r *UsageRepo) Increment(ctx context.Context, orgID string, periodStart, periodEnd time.Time, n int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_periods (id, organization_id, period_start, period_end, emails_sent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, period_start)
		DO UPDATE SET emails_sent = usage_periods.emails_sent + EXCLUDED.emails_sent
	`, uuid.New().String(), orgID, periodStart, periodEnd, n)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (r *UsageRepo) Get(ctx context.Context, orgID string, periodStart time.Time) (*domain.UsagePeriod, error) {
	u := &domain.UsagePeriod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, period_start, period_end, emails_sent
		FROM usage_periods
		WHERE organization_id = $1 AND period_start = $2
	`, orgID, periodStart).Scan(
		&u.ID, &u.OrganizationID, &u.PeriodStart, &u.PeriodEnd, &u.EmailsSent,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}
