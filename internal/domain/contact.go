package domain

import "time"

// Audience is a named group of contacts owned by an organization.
type Audience struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Contact is a recipient belonging to an audience. Contacts with
// Subscribed=false must never be selected by the broadcast dispatcher.
type Contact struct {
	ID         string    `json:"id" db:"id"`
	AudienceID string    `json:"audience_id" db:"audience_id"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"first_name,omitempty" db:"first_name"`
	LastName   string    `json:"last_name,omitempty" db:"last_name"`
	Subscribed bool      `json:"subscribed" db:"subscribed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
