package device

import (
	"context"
	"errors"
)

// CredentialResolver maps an inbound bearer credential to a device.
//
// The scan-based implementation below is a deliberate consequence of
// one-way hashed secrets. Swapping in an indexed scheme later only means
// providing another implementation of this interface.
type CredentialResolver interface {
	Resolve(ctx context.Context, secret string) (*Device, error)
}

// Authenticator resolves bearer secrets by probing the stored hashes of
// non-revoked devices, bounded by scanLimit. This is the one
// intentionally expensive primitive in the system.
type Authenticator struct {
	repo      Repository
	scanLimit int
}

// NewAuthenticator creates an authenticator with the given candidate
// scan bound. Callers needing more headroom must shard the device
// keyspace; exceeding the bound is an authentication failure, not an
// error.
func NewAuthenticator(repo Repository, scanLimit int) *Authenticator {
	return &Authenticator{repo: repo, scanLimit: scanLimit}
}

// Resolve verifies the secret against each candidate hash and returns
// the first matching device.
//
// Returns ErrBadCredential when nothing matches within the bound, and
// ErrSecretRevoked when the matched device was revoked between candidate
// listing and verification.
func (a *Authenticator) Resolve(ctx context.Context, secret string) (*Device, error) {
	if secret == "" {
		return nil, ErrBadCredential
	}

	candidates, err := a.repo.ListCredentials(ctx, a.scanLimit)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := VerifySecret(secret, c.SecretHash)
		if err != nil || !ok {
			continue
		}

		d, err := a.repo.GetByID(ctx, c.DeviceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrBadCredential
			}
			return nil, err
		}
		// Revocation may land between listing and verification.
		if d.TokenRevoked {
			return nil, ErrSecretRevoked
		}
		return d, nil
	}

	return nil, ErrBadCredential
}
