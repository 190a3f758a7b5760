package event

import "errors"

// Domain errors for the event package, checked with errors.Is().
var (
	// ErrDeviceUnpaired is returned when an unpaired device submits a
	// fall event. Heartbeats are exempt.
	ErrDeviceUnpaired = errors.New("event: device not paired")

	// ErrNotFound is returned when no event matches the lookup.
	ErrNotFound = errors.New("event: not found")

	// ErrDuplicateEventID is returned by the store when an insert hits
	// the unique constraint on the client event ID. The pipeline folds
	// it into an idempotent acknowledgement.
	ErrDuplicateEventID = errors.New("event: duplicate event id")
)
