// Package dispatch drives the scheduled-email pipeline: it claims due
// emails in batches, transmits each one, and records the outcome.
//
// Pipeline rules:
//   - Pickup is a compare-and-swap: scheduled → queued in one statement,
//     so two workers never claim the same email.
//   - Items are isolated. One email failing to send marks that email
//     failed and the batch moves on; the run still returns success.
//   - Every accepted send appends a "sent" event row, fires the
//     email.sent webhook, and counts against the organization's usage.
//   - Emails stuck in queued beyond a threshold (a worker died mid-batch)
//     are swept to failed so they do not sit invisible forever.
package dispatch
