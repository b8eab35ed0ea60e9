package webhook

import (
	"context"

	"github.com/unosend/unosend/internal/domain"
)

// Repository defines the data access contract for webhook subscriptions and
// delivery logs. Implementations must be safe for concurrent use.
type Repository interface {
	// ListEnabled returns all enabled webhooks for an organization.
	ListEnabled(ctx context.Context, orgID string) ([]domain.Webhook, error)

	// InsertLog appends a delivery log row. Logs are write-once.
	InsertLog(ctx context.Context, l *domain.WebhookLog) error
}

// EmailReader provides the email metadata the event trigger façade needs.
// Returns ErrEmailNotFound if the email no longer exists.
type EmailReader interface {
	Get(ctx context.Context, id string) (*domain.Email, error)
}
