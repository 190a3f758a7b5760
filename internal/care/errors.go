package care

import "errors"

// Domain errors for the care package, checked with errors.Is().
var (
	// ErrAssistidoNotFound is returned when an assistido ID does not exist.
	ErrAssistidoNotFound = errors.New("care: assistido not found")

	// ErrNoDestination is returned when a caregiver has no registered
	// push destination.
	ErrNoDestination = errors.New("care: no push destination")
)
