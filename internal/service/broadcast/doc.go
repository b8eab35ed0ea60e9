// Package broadcast expands due broadcasts into per-contact emails and
// sends them.
//
// A run claims up to a batch of scheduled broadcasts (scheduled →
// sending, compare-and-swap), loads each one's subscribed contacts,
// renders personalization tokens per contact, and transmits. Contact
// failures are isolated: the broadcast still completes and its counters
// reflect what actually went out. Cancellation is only honored while a
// broadcast is still scheduled; once sending starts it runs to
// completion.
package broadcast
