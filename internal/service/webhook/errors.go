package webhook

import "errors"

// Sentinel errors for the webhook service layer.
var (
	ErrEmailNotFound   = errors.New("email not found")
	ErrWebhookNotFound = errors.New("webhook not found")
)
