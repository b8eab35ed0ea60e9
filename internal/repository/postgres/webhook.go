package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/unosend/unosend/internal/domain"
)

// WebhookRepo implements webhook.Repository against PostgreSQL.
type WebhookRepo struct{ db *sql.DB }

// NewWebhookRepo creates a Postgres-backed webhook repository.
func NewWebhookRepo(db *sql.DB) *WebhookRepo { return &WebhookRepo{db: db} }

func (r *WebhookRepo) ListEnabled(ctx context.Context, orgID string) ([]domain.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, url, secret, events, enabled, created_at
		FROM webhooks
		WHERE organization_id = $1 AND enabled = TRUE
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list enabled webhooks: %w", err)
	}
	defer rows.Close()

	var out []domain.Webhook
	for rows.Next() {
		var w domain.Webhook
		var events []string
		if err := rows.Scan(
			&w.ID, &w.OrganizationID, &w.URL, &w.Secret,
			pq.Array(&events), &w.Enabled, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		w.Events = make([]domain.WebhookEvent, len(events))
		for i, e := range events {
			w.Events[i] = domain.WebhookEvent(e)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WebhookRepo) InsertLog(ctx context.Context, l *domain.WebhookLog) error {
	var responseStatus sql.NullInt32
	if l.ResponseStatus != nil {
		responseStatus = sql.NullInt32{Int32: int32(*l.ResponseStatus), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_logs
			(id, webhook_id, event_type, payload, response_status, success, error, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9)
	`, l.ID, l.WebhookID, l.EventType, []byte(l.Payload), responseStatus,
		l.Success, l.Error, l.Attempts, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}
