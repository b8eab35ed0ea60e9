// Package webhook implements outbound webhook delivery for email lifecycle
// events.
//
// The Dispatcher fans an event out to every enabled subscription of an
// organization, the Deliverer performs the signed HTTP POST with bounded
// retries and exponential backoff, and every delivery outcome is persisted as
// an append-only WebhookLog row whether or not the delivery succeeded.
//
// Payloads are authenticated with an HMAC-SHA256 signature over
// "{timestamp}.{body}" so subscribers can verify origin and reject replays.
package webhook
