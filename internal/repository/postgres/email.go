package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/unosend/unosend/internal/domain"
	"github.com/unosend/unosend/internal/service/webhook"
)

// EmailRepo implements dispatch.EmailRepository and webhook.EmailReader
// against PostgreSQL.
type EmailRepo struct{ db *sql.DB }

// NewEmailRepo creates a Postgres-backed email repository.
func NewEmailRepo(db *sql.DB) *EmailRepo { return &EmailRepo{db: db} }

func (r *EmailRepo) Get(ctx context.Context, id string) (*domain.Email, error) {
	e := &domain.Email{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, broadcast_id, from_email, COALESCE(from_name,''),
		       to_emails, cc_emails, bcc_emails, COALESCE(reply_to,''),
		       subject, COALESCE(html_content,''), COALESCE(text_content,''),
		       status, scheduled_for, COALESCE(provider_message_id,''),
		       COALESCE(error,''), sent_at, created_at, updated_at
		FROM emails
		WHERE id = $1
	`, id).Scan(
		&e.ID, &e.OrganizationID, &e.BroadcastID, &e.FromEmail, &e.FromName,
		pq.Array(&e.ToEmails), pq.Array(&e.CCEmails), pq.Array(&e.BCCEmails), &e.ReplyTo,
		&e.Subject, &e.HTMLContent, &e.TextContent,
		&e.Status, &e.ScheduledFor, &e.ProviderMessageID,
		&e.ErrorMessage, &e.SentAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, webhook.ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	return e, nil
}

// ClaimDue moves up to limit due scheduled emails to queued in one statement.
// The UPDATE ... RETURNING form makes the claim atomic: concurrent workers
// never receive the same row.
func (r *EmailRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Email, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE emails SET status = 'queued', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM emails
			WHERE status = 'scheduled' AND scheduled_for <= $1
			ORDER BY scheduled_for
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, organization_id, broadcast_id, from_email, COALESCE(from_name,''),
		          to_emails, cc_emails, bcc_emails, COALESCE(reply_to,''),
		          subject, COALESCE(html_content,''), COALESCE(text_content,''),
		          status, scheduled_for, created_at, updated_at
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due emails: %w", err)
	}
	defer rows.Close()

	var out []domain.Email
	for rows.Next() {
		var e domain.Email
		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.BroadcastID, &e.FromEmail, &e.FromName,
			pq.Array(&e.ToEmails), pq.Array(&e.CCEmails), pq.Array(&e.BCCEmails), &e.ReplyTo,
			&e.Subject, &e.HTMLContent, &e.TextContent,
			&e.Status, &e.ScheduledFor, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed email: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmailRepo) MarkSent(ctx context.Context, emailID, providerMessageID string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE emails
		SET status = 'sent', provider_message_id = $2, sent_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`, emailID, providerMessageID, sentAt)
	if err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

func (r *EmailRepo) MarkFailed(ctx context.Context, emailID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE emails
		SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`, emailID, errMsg)
	if err != nil {
		return fmt.Errorf("mark email failed: %w", err)
	}
	return nil
}

func (r *EmailRepo) InsertEvent(ctx context.Context, ev *domain.EmailEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_events (id, email_id, event_type, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.ID, ev.EmailID, ev.EventType, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert email event: %w", err)
	}
	return nil
}

func (r *EmailRepo) FailStuckQueued(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE emails
		SET status = 'failed', error = 'stuck in queued state', updated_at = NOW()
		WHERE status = 'queued' AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fail stuck queued emails: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stuck queued emails: %w", err)
	}
	return n, nil
}

// InsertEmail persists a broadcast-expanded email row.
func (r *EmailRepo) InsertEmail(ctx context.Context, e *domain.Email) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emails
			(id, organization_id, broadcast_id, from_email, from_name, to_emails,
			 reply_to, subject, html_content, text_content, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`, e.ID, e.OrganizationID, e.BroadcastID, e.FromEmail, e.FromName,
		pq.Array(e.ToEmails), e.ReplyTo, e.Subject, e.HTMLContent, e.TextContent, e.Status)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

// UpdateEmailOutcome records a broadcast-expanded email's send outcome.
func (r *EmailRepo) UpdateEmailOutcome(ctx context.Context, emailID string, status domain.EmailStatus, providerMessageID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE emails
		SET status = $2, provider_message_id = NULLIF($3,''), error = NULLIF($4,''),
		    sent_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE sent_at END,
		    updated_at = NOW()
		WHERE id = $1
	`, emailID, status, providerMessageID, errMsg)
	if err != nil {
		return fmt.Errorf("update email outcome: %w", err)
	}
	return nil
}
