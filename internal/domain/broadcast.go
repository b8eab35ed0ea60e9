package domain

import "time"

// BroadcastStatus enumerates the lifecycle states of a broadcast.
type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "draft"
	BroadcastScheduled BroadcastStatus = "scheduled"
	BroadcastSending   BroadcastStatus = "sending"
	BroadcastSent      BroadcastStatus = "sent"
	BroadcastFailed    BroadcastStatus = "failed"
	BroadcastCancelled BroadcastStatus = "cancelled"
)

// broadcastTransitions enumerates the legal status transitions. Cancellation is
// only legal from scheduled; a broadcast already in sending runs to completion.
var broadcastTransitions = map[BroadcastStatus][]BroadcastStatus{
	BroadcastDraft:     {BroadcastScheduled},
	BroadcastScheduled: {BroadcastSending, BroadcastCancelled},
	BroadcastSending:   {BroadcastSent, BroadcastFailed},
	BroadcastSent:      {},
	BroadcastFailed:    {},
	BroadcastCancelled: {},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s BroadcastStatus) CanTransitionTo(next BroadcastStatus) bool {
	for _, allowed := range broadcastTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s BroadcastStatus) IsTerminal() bool {
	return len(broadcastTransitions[s]) == 0
}

// Broadcast is a one-to-many send job targeting an audience. One broadcast
// expands into N Email records at dispatch time.
type Broadcast struct {
	ID              string          `json:"id" db:"id"`
	OrganizationID  string          `json:"organization_id" db:"organization_id"`
	AudienceID      string          `json:"audience_id" db:"audience_id"`
	Name            string          `json:"name" db:"name"`
	Subject         string          `json:"subject" db:"subject"`
	FromEmail       string          `json:"from_email" db:"from_email"`
	FromName        string          `json:"from_name" db:"from_name"`
	HTMLContent     string          `json:"html_content" db:"html_content"`
	Status          BroadcastStatus `json:"status" db:"status"`
	ScheduledAt     *time.Time      `json:"scheduled_at,omitempty" db:"scheduled_at"`
	SentAt          *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	TotalRecipients int             `json:"total_recipients" db:"total_recipients"`
	SentCount       int             `json:"sent_count" db:"sent_count"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
