package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Logger is the minimal logging interface the registry needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Registry owns device identity: registration, secret rotation and
// one-time pair code issuance.
type Registry struct {
	repo Repository
	log  Logger
}

// NewRegistry creates a device registry backed by the given repository.
func NewRegistry(repo Repository, log Logger) *Registry {
	return &Registry{repo: repo, log: log}
}

// RegisterResult is the outcome of a registration call. Secret carries
// the raw device secret exactly once; it is never retrievable again.
type RegisterResult struct {
	Device  *Device
	Secret  string
	Rotated bool
}

// Register creates a device for a new serial, or rotates the secret of
// an existing one.
//
// For a known serial the existing pairing state is preserved: the secret
// hash is replaced, the revoked flag cleared, and the display name
// updated when non-empty. Either way the caller receives the raw secret
// in the result and nowhere else.
func (g *Registry) Register(ctx context.Context, serial, name string) (*RegisterResult, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, ErrSerialRequired
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	secretHash, err := HashSecret(secret)
	if err != nil {
		return nil, err
	}

	existing, err := g.repo.GetBySerial(ctx, serial)
	switch {
	case err == nil:
		if err := g.repo.RotateSecret(ctx, existing.ID, secretHash, name); err != nil {
			return nil, err
		}
		rotated, err := g.repo.GetByID(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		g.log.Info("device secret rotated", "device_id", rotated.ID, "serial", serial)
		return &RegisterResult{Device: rotated, Secret: secret, Rotated: true}, nil

	case errors.Is(err, ErrNotFound):
		shortCode, err := GenerateShortCode()
		if err != nil {
			return nil, err
		}
		d := &Device{
			Serial:     serial,
			Name:       name,
			ShortCode:  shortCode,
			SecretHash: secretHash,
		}
		if err := g.repo.Create(ctx, d); err != nil {
			return nil, err
		}
		g.log.Info("device registered", "device_id", d.ID, "serial", serial)
		return &RegisterResult{Device: d, Secret: secret}, nil

	default:
		return nil, fmt.Errorf("looking up serial: %w", err)
	}
}

// PairCode is an issued one-time pairing code. Code carries the raw
// value exactly once; only its hash is stored.
type PairCode struct {
	Code      string
	ExpiresAt time.Time
}

// IssuePairCode generates a single-use pair code for the device with the
// given serial. Any previously outstanding code is superseded.
func (g *Registry) IssuePairCode(ctx context.Context, serial string, ttl time.Duration) (*PairCode, error) {
	d, err := g.repo.GetBySerial(ctx, strings.TrimSpace(serial))
	if err != nil {
		return nil, err
	}

	code, err := GeneratePairCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := HashSecret(code)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().UTC().Add(ttl).Truncate(time.Second)
	if err := g.repo.SetPairCode(ctx, d.ID, codeHash, expiresAt); err != nil {
		return nil, err
	}

	g.log.Info("pair code issued", "device_id", d.ID, "expires_at", expiresAt)
	return &PairCode{Code: code, ExpiresAt: expiresAt}, nil
}
