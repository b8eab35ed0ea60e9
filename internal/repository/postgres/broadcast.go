package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/service/broadcast"
)

// BroadcastRepo implements broadcast.Repository against PostgreSQL. Email
// expansion rows are written through the shared EmailRepo.
type BroadcastRepo struct {
	db     *sql.DB
	emails *EmailRepo
}

// NewBroadcastRepo creates a Postgres-backed broadcast repository.
func NewBroadcastRepo(db *sql.DB, emails *EmailRepo) *BroadcastRepo {
	return &BroadcastRepo{db: db, emails: emails}
}

// ClaimDue moves up to limit due scheduled broadcasts to sending in one
// statement so concurrent workers never claim the same broadcast.
func (r *BroadcastRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Broadcast, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE broadcasts SET status = 'sending', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM broadcasts
			WHERE status = 'scheduled' AND scheduled_at <= $1
			ORDER BY scheduled_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, organization_id, audience_id, name, subject,
		          from_email, COALESCE(from_name,''), COALESCE(html_content,''),
		          status, scheduled_at, total_recipients, sent_count,
		          created_at, updated_at
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due broadcasts: %w", err)
	}
	defer rows.Close()

	var out []domain.Broadcast
	for rows.Next() {
		var b domain.Broadcast
		if err := rows.Scan(
			&b.ID, &b.OrganizationID, &b.AudienceID, &b.Name, &b.Subject,
			&b.FromEmail, &b.FromName, &b.HTMLContent,
			&b.Status, &b.ScheduledAt, &b.TotalRecipients, &b.SentCount,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed broadcast: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BroadcastRepo) MarkSent(ctx context.Context, broadcastID string, sentCount, totalRecipients int, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE broadcasts
		SET status = 'sent', sent_count = $2, total_recipients = $3,
		    sent_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'sending'
	`, broadcastID, sentCount, totalRecipients, sentAt)
	if err != nil {
		return fmt.Errorf("mark broadcast sent: %w", err)
	}
	return nil
}

func (r *BroadcastRepo) MarkFailed(ctx context.Context, broadcastID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'sending'
	`, broadcastID)
	if err != nil {
		return fmt.Errorf("mark broadcast failed: %w", err)
	}
	return nil
}

// Cancel flips a scheduled broadcast to cancelled. The status guard in the
// WHERE clause is the compare-and-swap: a broadcast the worker already
// claimed matches zero rows, and the second query distinguishes "gone"
// from "too late".
func (r *BroadcastRepo) Cancel(ctx context.Context, orgID, broadcastID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE broadcasts SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'scheduled'
	`, broadcastID, orgID)
	if err != nil {
		return fmt.Errorf("cancel broadcast: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel broadcast: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `
		SELECT status FROM broadcasts WHERE id = $1 AND organization_id = $2
	`, broadcastID, orgID).Scan(&status)
	if err == sql.ErrNoRows {
		return broadcast.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cancel broadcast: %w", err)
	}
	return broadcast.ErrNotCancellable
}

func (r *BroadcastRepo) SubscribedContacts(ctx context.Context, audienceID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, audience_id, email, COALESCE(first_name,''), COALESCE(last_name,''),
		       subscribed, created_at
		FROM contacts
		WHERE audience_id = $1 AND subscribed = TRUE
		ORDER BY created_at
	`, audienceID)
	if err != nil {
		return nil, fmt.Errorf("list subscribed contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID, &c.AudienceID, &c.Email, &c.FirstName, &c.LastName,
			&c.Subscribed, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *BroadcastRepo) InsertEmail(ctx context.Context, e *domain.Email) error {
	return r.emails.InsertEmail(ctx, e)
}

func (r *BroadcastRepo) UpdateEmailOutcome(ctx context.Context, emailID string, status domain.EmailStatus, providerMessageID, errMsg string) error {
	return r.emails.UpdateEmailOutcome(ctx, emailID, status, providerMessageID, errMsg)
}
