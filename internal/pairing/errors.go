package pairing

import "errors"

// Domain errors for the pairing package, checked with errors.Is().
var (
	// ErrNotLinked is returned when the caller holds no vínculo to the
	// assistido involved in the operation.
	ErrNotLinked = errors.New("pairing: caregiver not linked to assistido")

	// ErrAlreadyPaired is returned when the device is already paired,
	// including when a concurrent caller won the pairing race.
	ErrAlreadyPaired = errors.New("pairing: device already paired")

	// ErrNotPaired is returned when unpairing a device that is not paired.
	ErrNotPaired = errors.New("pairing: device not paired")

	// ErrPairCodeRequired is returned when the device carries a one-time
	// pair code but none was supplied.
	ErrPairCodeRequired = errors.New("pairing: pair code required")

	// ErrPairCodeInvalid is returned when the supplied pair code does not
	// verify, was already used, or is past its expiry.
	ErrPairCodeInvalid = errors.New("pairing: pair code invalid")
)
