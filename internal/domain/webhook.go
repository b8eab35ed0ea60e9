package domain

import (
	"encoding/json"
	"time"
)

// WebhookEvent is a lifecycle event name a webhook can subscribe to.
// The set is closed; anything else is rejected at the edge.
type WebhookEvent string

const (
	WebhookEmailSent       WebhookEvent = "email.sent"
	WebhookEmailDelivered  WebhookEvent = "email.delivered"
	WebhookEmailBounced    WebhookEvent = "email.bounced"
	WebhookEmailComplained WebhookEvent = "email.complained"
	WebhookEmailOpened     WebhookEvent = "email.opened"
	WebhookEmailClicked    WebhookEvent = "email.clicked"
	WebhookEmailFailed     WebhookEvent = "email.failed"
)

// AllWebhookEvents returns the closed set of deliverable event types.
func AllWebhookEvents() []WebhookEvent {
	return []WebhookEvent{
		WebhookEmailSent,
		WebhookEmailDelivered,
		WebhookEmailBounced,
		WebhookEmailComplained,
		WebhookEmailOpened,
		WebhookEmailClicked,
		WebhookEmailFailed,
	}
}

// Valid reports whether ev is a member of the closed event set.
func (ev WebhookEvent) Valid() bool {
	for _, e := range AllWebhookEvents() {
		if e == ev {
			return true
		}
	}
	return false
}

// Webhook is an organization's subscription endpoint. The secret is generated
// once at creation and shown once; delivery only occurs for subscribed events
// and only while enabled.
type Webhook struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	URL            string         `json:"url" db:"url"`
	Secret         string         `json:"-" db:"secret"`
	Events         []WebhookEvent `json:"events" db:"events"`
	Enabled        bool           `json:"enabled" db:"enabled"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Subscribed reports whether the webhook subscribes to the given event.
func (w *Webhook) Subscribed(ev WebhookEvent) bool {
	for _, e := range w.Events {
		if e == ev {
			return true
		}
	}
	return false
}

// WebhookLog is an append-only record of one delivery outcome, written
// unconditionally after every dispatch attempt sequence.
type WebhookLog struct {
	ID             string          `json:"id" db:"id"`
	WebhookID      string          `json:"webhook_id" db:"webhook_id"`
	EventType      WebhookEvent    `json:"event_type" db:"event_type"`
	Payload        json.RawMessage `json:"payload" db:"payload"`
	ResponseStatus *int            `json:"response_status,omitempty" db:"response_status"`
	Success        bool            `json:"success" db:"success"`
	Error          string          `json:"error,omitempty" db:"error"`
	Attempts       int             `json:"attempts" db:"attempts"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
