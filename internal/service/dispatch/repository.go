package dispatch

import (
	"context"
	"time"

	"github.com/unosend/unosend/internal/domain"
)

// EmailRepository is the persistence surface of the scheduled-email pipeline.
type EmailRepository interface {
	// ClaimDue atomically moves up to limit due scheduled emails to queued
	// and returns them. An email is due when scheduled_for <= now. Two
	// concurrent callers never receive the same email.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Email, error)

	// MarkSent transitions a queued email to sent, recording the provider
	// message id and the send time.
	MarkSent(ctx context.Context, emailID, providerMessageID string, sentAt time.Time) error

	// MarkFailed transitions a queued email to failed with the error message.
	MarkFailed(ctx context.Context, emailID, errMsg string) error

	// InsertEvent appends an email event row.
	InsertEvent(ctx context.Context, ev *domain.EmailEvent) error

	// FailStuckQueued fails every email that has sat in queued since before
	// cutoff and returns how many were swept.
	FailStuckQueued(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventTrigger fires webhook notifications for email lifecycle events.
type EventTrigger interface {
	TriggerEmailEvent(ctx context.Context, orgID string, event domain.WebhookEvent, emailID string, extra map[string]interface{}) error
}

// UsageRecorder counts sent emails against an organization's billing period.
type UsageRecorder interface {
	RecordSent(ctx context.Context, orgID string, n int) error
}
