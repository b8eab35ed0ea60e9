package broadcast

import "errors"

var (
	// ErrNotFound indicates the broadcast does not exist.
	ErrNotFound = errors.New("broadcast not found")

	// ErrNotCancellable indicates the broadcast is past the point of
	// cancellation (already sending, sent, failed, or cancelled).
	ErrNotCancellable = errors.New("broadcast is not cancellable")
)
