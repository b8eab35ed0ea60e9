package broadcast

import (
	"context"
	"time"

	"github.com/unosend/unosend/internal/domain"
)

// Repository is the persistence surface of the broadcast dispatcher.
type Repository interface {
	// ClaimDue atomically moves up to limit due scheduled broadcasts to
	// sending and returns them. A broadcast is due when
	// scheduled_at <= now. Two concurrent callers never receive the
	// same broadcast.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Broadcast, error)

	// MarkSent transitions a sending broadcast to sent, recording the
	// final recipient counters.
	MarkSent(ctx context.Context, broadcastID string, sentCount, totalRecipients int, sentAt time.Time) error

	// MarkFailed transitions a sending broadcast to failed.
	MarkFailed(ctx context.Context, broadcastID string) error

	// Cancel moves a broadcast from scheduled to cancelled. It returns
	// ErrNotFound when the id does not exist for the organization and
	// ErrNotCancellable when the broadcast is in any other status.
	Cancel(ctx context.Context, orgID, broadcastID string) error

	// SubscribedContacts returns the audience's contacts with
	// Subscribed=true.
	SubscribedContacts(ctx context.Context, audienceID string) ([]domain.Contact, error)

	// InsertEmail persists the per-contact email row created during
	// expansion.
	InsertEmail(ctx context.Context, em *domain.Email) error

	// UpdateEmailOutcome records the send outcome on an expanded email:
	// status delivered with the provider id, or failed with the error.
	UpdateEmailOutcome(ctx context.Context, emailID string, status domain.EmailStatus, providerMessageID, errMsg string) error
}
