package domain

import (
	"testing"
	"time"
)

func TestEmailStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from EmailStatus
		to   EmailStatus
		ok   bool
	}{
		{"scheduled to queued", EmailScheduled, EmailQueued, true},
		{"scheduled to cancelled", EmailScheduled, EmailCancelled, true},
		{"scheduled to sent skips queued", EmailScheduled, EmailSent, false},
		{"queued to sent", EmailQueued, EmailSent, true},
		{"queued to failed", EmailQueued, EmailFailed, true},
		{"queued back to scheduled", EmailQueued, EmailScheduled, false},
		{"sending to delivered", EmailSending, EmailDelivered, true},
		{"sending to failed", EmailSending, EmailFailed, true},
		{"sent to delivered", EmailSent, EmailDelivered, true},
		{"sent to bounced", EmailSent, EmailBounced, true},
		{"failed is terminal", EmailFailed, EmailScheduled, false},
		{"cancelled is terminal", EmailCancelled, EmailQueued, false},
		{"bounced cannot be resent in place", EmailBounced, EmailScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestEmailStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   EmailStatus
		terminal bool
	}{
		{EmailScheduled, false},
		{EmailQueued, false},
		{EmailSending, false},
		{EmailSent, false},
		{EmailDelivered, true},
		{EmailBounced, true},
		{EmailFailed, true},
		{EmailCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestFromAddress(t *testing.T) {
	e := &Email{FromEmail: "news@example.com", FromName: "Acme News"}
	if got := e.FromAddress(); got != "Acme News <news@example.com>" {
		t.Errorf("FromAddress() = %q", got)
	}

	e.FromName = ""
	if got := e.FromAddress(); got != "news@example.com" {
		t.Errorf("FromAddress() without display name = %q", got)
	}
}

func TestPeriodBounds(t *testing.T) {
	now := time.Date(2026, time.February, 17, 9, 30, 0, 0, time.UTC)
	start, end := PeriodBounds(now)

	if !start.Equal(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
