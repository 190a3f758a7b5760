package device

import "time"

// Device is a physical fall-detection sensor unit.
//
// The pairing invariant: AssistidoID is non-nil if and only if the
// device is paired. PairedBy and PairedAt are set and cleared together
// with AssistidoID.
type Device struct {
	ID        string `json:"id"`
	Serial    string `json:"serial"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`

	// SecretHash is the Argon2id hash of the device secret.
	// The raw secret is returned once at registration and never stored.
	SecretHash   string `json:"-"`
	TokenRevoked bool   `json:"-"`

	// One-time pair code, present only while one is outstanding.
	PairCodeHash      *string    `json:"-"`
	PairCodeExpiresAt *time.Time `json:"-"`
	PairCodeUsed      bool       `json:"-"`

	AssistidoID *string    `json:"assistido_id"`
	PairedBy    *string    `json:"paired_by,omitempty"`
	PairedAt    *time.Time `json:"paired_at,omitempty"`

	LastSeen        *time.Time `json:"last_seen,omitempty"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Paired reports whether the device is currently paired to an assistido.
func (d *Device) Paired() bool {
	return d.AssistidoID != nil
}

// Credential is a slim projection used by the authenticator's candidate
// scan: just enough to verify a bearer secret and identify the match.
type Credential struct {
	DeviceID   string
	SecretHash string
}
