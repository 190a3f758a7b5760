package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence operations.
// The abstraction enables unit testing without a database and keeps the
// conditional pairing write (the one race-sensitive mutation) at the
// store level where it belongs.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetBySerial retrieves a device by its factory serial.
	GetBySerial(ctx context.Context, serial string) (*Device, error)

	// GetByLookup resolves a device by short code or serial, in that
	// order. Returns ErrNotFound when neither matches.
	GetByLookup(ctx context.Context, serialOrCode string) (*Device, error)

	// Create inserts a new device row.
	Create(ctx context.Context, d *Device) error

	// RotateSecret replaces the secret hash, clears the revoked flag,
	// and optionally updates the display name. Pairing state is untouched.
	RotateSecret(ctx context.Context, id, secretHash, name string) error

	// SetPairCode stores a fresh one-time pair code hash with its expiry
	// and clears the used flag.
	SetPairCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error

	// ClaimPairing atomically pairs the device to an assistido, but only
	// if it is still unpaired at write time. Returns false when a
	// concurrent writer won the race. When consumePairCode is set the
	// outstanding pair code is marked used in the same statement.
	ClaimPairing(ctx context.Context, id, assistidoID, caregiverID string, at time.Time, consumePairCode bool) (bool, error)

	// ReleasePairing clears assistido_id, paired_by and paired_at.
	ReleasePairing(ctx context.Context, id string) error

	// TouchLastSeen refreshes the device liveness timestamp.
	TouchLastSeen(ctx context.Context, id string, at time.Time) error

	// ListCredentials returns up to limit (device id, secret hash) pairs
	// for non-revoked devices, for the authenticator's candidate scan.
	ListCredentials(ctx context.Context, limit int) ([]Credential, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, serial, name, short_code, secret_hash, token_revoked,
	pair_code_hash, pair_code_expires_at, pair_code_used,
	assistido_id, paired_by, paired_at, last_seen, firmware_version,
	created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	return scanDevice(row)
}

// GetBySerial retrieves a device by its factory serial.
func (r *SQLiteRepository) GetBySerial(ctx context.Context, serial string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE serial = ?`, serial)
	return scanDevice(row)
}

// GetByLookup resolves a device by short code first, then serial.
func (r *SQLiteRepository) GetByLookup(ctx context.Context, serialOrCode string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE short_code = ? OR serial = ?
		 ORDER BY CASE WHEN short_code = ? THEN 0 ELSE 1 END LIMIT 1`,
		serialOrCode, serialOrCode, serialOrCode)
	return scanDevice(row)
}

// Create inserts a new device row. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = "dev-" + uuid.NewString()[:16]
	}

	now := time.Now().UTC().Truncate(time.Second)
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, serial, name, short_code, secret_hash, token_revoked,
			firmware_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Serial, d.Name, d.ShortCode, d.SecretHash, boolToInt(d.TokenRevoked),
		d.FirmwareVersion, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	return nil
}

// RotateSecret replaces the secret hash and clears the revoked flag.
// An empty name leaves the display name unchanged.
func (r *SQLiteRepository) RotateSecret(ctx context.Context, id, secretHash, name string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices
		 SET secret_hash = ?, token_revoked = 0,
			name = CASE WHEN ? = '' THEN name ELSE ? END,
			updated_at = ?
		 WHERE id = ?`,
		secretHash, name, name, nowString(), id)
	if err != nil {
		return fmt.Errorf("rotating device secret: %w", err)
	}
	return nil
}

// SetPairCode stores a fresh one-time pair code hash.
func (r *SQLiteRepository) SetPairCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices
		 SET pair_code_hash = ?, pair_code_expires_at = ?, pair_code_used = 0, updated_at = ?
		 WHERE id = ?`,
		codeHash, formatTime(expiresAt), nowString(), id)
	if err != nil {
		return fmt.Errorf("setting pair code: %w", err)
	}
	return nil
}

// ClaimPairing performs the compare-and-set pairing transition.
//
// The WHERE clause re-checks the unpaired precondition at write time so
// two concurrent callers cannot both win; the loser sees zero rows
// affected and must surface a conflict, never overwrite.
func (r *SQLiteRepository) ClaimPairing(ctx context.Context, id, assistidoID, caregiverID string, at time.Time, consumePairCode bool) (bool, error) {
	consume := 0
	if consumePairCode {
		consume = 1
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices
		 SET assistido_id = ?, paired_by = ?, paired_at = ?,
			pair_code_used = CASE WHEN ? = 1 THEN 1 ELSE pair_code_used END,
			updated_at = ?
		 WHERE id = ? AND assistido_id IS NULL`,
		assistidoID, caregiverID, formatTime(at), consume, nowString(), id)
	if err != nil {
		return false, fmt.Errorf("claiming pairing: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return affected == 1, nil
}

// ReleasePairing returns the device to the unpaired state.
func (r *SQLiteRepository) ReleasePairing(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices
		 SET assistido_id = NULL, paired_by = NULL, paired_at = NULL, updated_at = ?
		 WHERE id = ?`,
		nowString(), id)
	if err != nil {
		return fmt.Errorf("releasing pairing: %w", err)
	}
	return nil
}

// TouchLastSeen refreshes the device liveness timestamp.
func (r *SQLiteRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE devices SET last_seen = ? WHERE id = ?",
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touching last seen: %w", err)
	}
	return nil
}

// ListCredentials returns candidate credentials for the bounded
// authentication scan. Ordering by last_seen puts recently active
// devices first, which keeps the common case cheap.
func (r *SQLiteRepository) ListCredentials(ctx context.Context, limit int) ([]Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, secret_hash FROM devices
		 WHERE token_revoked = 0
		 ORDER BY last_seen DESC NULLS LAST
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.DeviceID, &c.SecretHash); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return creds, nil
}

// scanDevice scans a device row, mapping sql.ErrNoRows to ErrNotFound.
func scanDevice(row *sql.Row) (*Device, error) {
	var d Device
	var revoked, codeUsed int
	var codeHash, assistidoID, pairedBy sql.NullString
	var codeExpires, pairedAt, lastSeen sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.Serial, &d.Name, &d.ShortCode, &d.SecretHash, &revoked,
		&codeHash, &codeExpires, &codeUsed,
		&assistidoID, &pairedBy, &pairedAt, &lastSeen, &d.FirmwareVersion,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.TokenRevoked = revoked != 0
	d.PairCodeUsed = codeUsed != 0
	d.PairCodeHash = nullStringPtr(codeHash)
	d.PairCodeExpiresAt = nullTimePtr(codeExpires)
	d.AssistidoID = nullStringPtr(assistidoID)
	d.PairedBy = nullStringPtr(pairedBy)
	d.PairedAt = nullTimePtr(pairedAt)
	d.LastSeen = nullTimePtr(lastSeen)
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nowString() string {
	return formatTime(time.Now())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
