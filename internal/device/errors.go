package device

import "errors"

// Domain errors for the device package, checked with errors.Is().
var (
	// ErrNotFound is returned when no device matches the given lookup.
	ErrNotFound = errors.New("device: not found")

	// ErrSerialRequired is returned when registering with an empty serial.
	ErrSerialRequired = errors.New("device: serial is required")

	// ErrBadCredential is returned when a bearer secret matches no
	// active device within the scan bound.
	ErrBadCredential = errors.New("device: unknown credential")

	// ErrSecretRevoked is returned when a bearer secret matches a device
	// whose token_revoked flag is set.
	ErrSecretRevoked = errors.New("device: credential revoked")
)
