package domain

import "time"

// UsagePeriod is a per-organization, per-calendar-month counter of emails sent.
// Exactly one record exists per (organization, period_start); it is created
// lazily on the first send of a period and incremented monotonically.
type UsagePeriod struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	PeriodStart    time.Time `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time `json:"period_end" db:"period_end"`
	EmailsSent     int64     `json:"emails_sent" db:"emails_sent"`
}

// PeriodBounds returns the first and last calendar day of the month containing
// now, in UTC.
func PeriodBounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}
