// Package usage tracks per-organization email volume by calendar month.
//
// Every successful send increments the organization's counter for the
// current billing period (first through last day of the month, UTC).
// Counting happens after the provider accepts the message, so rejected
// sends never inflate usage.
package usage
