package domain

import (
	"fmt"
	"time"
)

// EmailStatus enumerates the lifecycle states of a single outbound email.
type EmailStatus string

const (
	EmailScheduled EmailStatus = "scheduled"
	EmailQueued    EmailStatus = "queued"
	EmailSending   EmailStatus = "sending"
	EmailSent      EmailStatus = "sent"
	EmailDelivered EmailStatus = "delivered"
	EmailBounced   EmailStatus = "bounced"
	EmailFailed    EmailStatus = "failed"
	EmailCancelled EmailStatus = "cancelled"
)

// emailTransitions enumerates the legal status transitions. Statuses only move
// forward; a bounced or failed email is resent by creating a new Email row that
// references the original, never by rewinding this one.
var emailTransitions = map[EmailStatus][]EmailStatus{
	EmailScheduled: {EmailQueued, EmailCancelled},
	EmailQueued:    {EmailSent, EmailFailed},
	EmailSending:   {EmailDelivered, EmailFailed},
	EmailSent:      {EmailDelivered, EmailBounced},
	EmailDelivered: {},
	EmailBounced:   {},
	EmailFailed:    {},
	EmailCancelled: {},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s EmailStatus) CanTransitionTo(next EmailStatus) bool {
	for _, allowed := range emailTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s EmailStatus) IsTerminal() bool {
	return len(emailTransitions[s]) == 0
}

// Email represents a single outbound message.
type Email struct {
	ID                string      `json:"id" db:"id"`
	OrganizationID    string      `json:"organization_id" db:"organization_id"`
	BroadcastID       *string     `json:"broadcast_id,omitempty" db:"broadcast_id"`
	FromEmail         string      `json:"from_email" db:"from_email"`
	FromName          string      `json:"from_name" db:"from_name"`
	ToEmails          []string    `json:"to_emails" db:"to_emails"`
	CCEmails          []string    `json:"cc_emails,omitempty" db:"cc_emails"`
	BCCEmails         []string    `json:"bcc_emails,omitempty" db:"bcc_emails"`
	ReplyTo           string      `json:"reply_to,omitempty" db:"reply_to"`
	Subject           string      `json:"subject" db:"subject"`
	HTMLContent       string      `json:"html_content,omitempty" db:"html_content"`
	TextContent       string      `json:"text_content,omitempty" db:"text_content"`
	Status            EmailStatus `json:"status" db:"status"`
	ScheduledFor      *time.Time  `json:"scheduled_for,omitempty" db:"scheduled_for"`
	ProviderMessageID string      `json:"provider_message_id,omitempty" db:"provider_message_id"`
	ErrorMessage      string      `json:"error,omitempty" db:"error"`
	SentAt            *time.Time  `json:"sent_at,omitempty" db:"sent_at"`
	DeliveredAt       *time.Time  `json:"delivered_at,omitempty" db:"delivered_at"`
	OpenedAt          *time.Time  `json:"opened_at,omitempty" db:"opened_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// FromAddress renders the RFC 5322 originator, using a display name when set.
func (e *Email) FromAddress() string {
	if e.FromName != "" {
		return fmt.Sprintf("%s <%s>", e.FromName, e.FromEmail)
	}
	return e.FromEmail
}

// EmailEvent is an append-only record of a single email state change.
// Rows are write-once audit records, never updated.
type EmailEvent struct {
	ID        string    `json:"id" db:"id"`
	EmailID   string    `json:"email_id" db:"email_id"`
	EventType string    `json:"event_type" db:"event_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Email event type names as stored in email_events.
const (
	EventSent       = "sent"
	EventDelivered  = "delivered"
	EventBounced    = "bounced"
	EventComplained = "complained"
	EventOpened     = "opened"
	EventClicked    = "clicked"
	EventFailed     = "failed"
)
