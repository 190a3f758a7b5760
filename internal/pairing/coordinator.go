package pairing

import (
	"context"
	"time"

	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/device"
)

// Logger is the minimal logging interface the coordinator needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Coordinator enforces the pairing state machine and its authorisation
// rules.
type Coordinator struct {
	devices device.Repository
	links   care.Repository
	log     Logger
}

// NewCoordinator creates a pairing coordinator.
func NewCoordinator(devices device.Repository, links care.Repository, log Logger) *Coordinator {
	return &Coordinator{devices: devices, links: links, log: log}
}

// Pair links the device resolved by lookup (short code or serial) to the
// assistido, on behalf of the calling caregiver.
//
// Preconditions, in check order:
//   - the caregiver holds a vínculo to the assistido (ErrNotLinked)
//   - the assistido exists (care.ErrAssistidoNotFound)
//   - the device exists (device.ErrNotFound)
//   - the device is unpaired (ErrAlreadyPaired)
//   - an outstanding pair code, if any, is supplied, verifies, is unused
//     and unexpired (ErrPairCodeRequired / ErrPairCodeInvalid)
//
// The transition itself is conditional on the device still being
// unpaired at write time; a losing concurrent caller gets
// ErrAlreadyPaired.
func (c *Coordinator) Pair(ctx context.Context, caregiverID, lookup, assistidoID, pairCode string) (*device.Device, error) {
	linked, err := c.links.IsLinked(ctx, caregiverID, assistidoID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrNotLinked
	}

	if _, err := c.links.GetAssistido(ctx, assistidoID); err != nil {
		return nil, err
	}

	d, err := c.devices.GetByLookup(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if d.Paired() {
		return nil, ErrAlreadyPaired
	}

	consumeCode := false
	if d.PairCodeHash != nil {
		if err := verifyPairCode(d, pairCode); err != nil {
			return nil, err
		}
		consumeCode = true
	}

	now := time.Now().UTC().Truncate(time.Second)
	won, err := c.devices.ClaimPairing(ctx, d.ID, assistidoID, caregiverID, now, consumeCode)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent caller paired the device between the read above
		// and this write.
		return nil, ErrAlreadyPaired
	}

	c.log.Info("device paired",
		"device_id", d.ID,
		"assistido_id", assistidoID,
		"caregiver_id", caregiverID,
	)

	return c.devices.GetByID(ctx, d.ID)
}

// Unpair removes the device's pairing on behalf of the calling caregiver.
//
// The caregiver must hold a vínculo to the device's current assistido;
// an unpaired device yields ErrNotPaired.
func (c *Coordinator) Unpair(ctx context.Context, caregiverID, lookup string) (*device.Device, error) {
	d, err := c.devices.GetByLookup(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if !d.Paired() {
		return nil, ErrNotPaired
	}

	linked, err := c.links.IsLinked(ctx, caregiverID, *d.AssistidoID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, ErrNotLinked
	}

	if err := c.devices.ReleasePairing(ctx, d.ID); err != nil {
		return nil, err
	}

	c.log.Info("device unpaired",
		"device_id", d.ID,
		"assistido_id", *d.AssistidoID,
		"caregiver_id", caregiverID,
	)

	return c.devices.GetByID(ctx, d.ID)
}

// verifyPairCode checks a supplied code against the device's outstanding
// one-time code.
func verifyPairCode(d *device.Device, code string) error {
	if code == "" {
		return ErrPairCodeRequired
	}
	if d.PairCodeUsed {
		return ErrPairCodeInvalid
	}
	if d.PairCodeExpiresAt == nil || time.Now().After(*d.PairCodeExpiresAt) {
		return ErrPairCodeInvalid
	}
	ok, err := device.VerifySecret(code, *d.PairCodeHash)
	if err != nil || !ok {
		return ErrPairCodeInvalid
	}
	return nil
}
