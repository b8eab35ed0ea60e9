// Package mailer provides the outbound mail transmission client used by the
// dispatch pipelines. The production implementation sends through AWS SES v2;
// tests substitute fakes behind the Mailer interface.
package mailer

import "context"

// Message is a single transmission request. From may carry an RFC 5322
// display name ("Acme <news@acme.com>").
type Message struct {
	From    string
	To      []string
	CC      []string
	BCC     []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Result carries the provider's identifier for an accepted message.
type Result struct {
	MessageID string
}

// Mailer submits a message to the provider. A non-nil error means the
// provider rejected or never accepted the message.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}
