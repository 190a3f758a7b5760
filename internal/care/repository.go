package care

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines read-only access to caregiver-owned data.
type Repository interface {
	// GetAssistido retrieves an assistido by ID.
	// Returns ErrAssistidoNotFound if it does not exist.
	GetAssistido(ctx context.Context, id string) (*Assistido, error)

	// IsLinked reports whether the caregiver holds a vínculo to the
	// assistido.
	IsLinked(ctx context.Context, caregiverID, assistidoID string) (bool, error)

	// ListCaregiverIDs returns every caregiver linked to the assistido.
	ListCaregiverIDs(ctx context.Context, assistidoID string) ([]string, error)

	// GetDestination returns the caregiver's push destination.
	// Returns ErrNoDestination when none is registered.
	GetDestination(ctx context.Context, caregiverID string) (*PushDestination, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetAssistido retrieves an assistido by ID.
func (r *SQLiteRepository) GetAssistido(ctx context.Context, id string) (*Assistido, error) {
	var a Assistido
	var birthDate, notes, phones sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, birth_date, notes, phones, created_at
		 FROM assistidos WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &birthDate, &notes, &phones, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssistidoNotFound
		}
		return nil, fmt.Errorf("querying assistido: %w", err)
	}

	if birthDate.Valid {
		a.BirthDate = birthDate.String
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if phones.Valid && phones.String != "" {
		// Phones are stored as a JSON array; a malformed value is
		// treated as absent rather than failing the read.
		_ = json.Unmarshal([]byte(phones.String), &a.Phones) //nolint:errcheck
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// IsLinked reports whether a vínculo exists for (caregiver, assistido).
func (r *SQLiteRepository) IsLinked(ctx context.Context, caregiverID, assistidoID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM vinculos WHERE caregiver_id = ? AND assistido_id = ?",
		caregiverID, assistidoID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying vinculo: %w", err)
	}
	return true, nil
}

// ListCaregiverIDs returns every caregiver linked to the assistido.
func (r *SQLiteRepository) ListCaregiverIDs(ctx context.Context, assistidoID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT caregiver_id FROM vinculos WHERE assistido_id = ? ORDER BY caregiver_id",
		assistidoID)
	if err != nil {
		return nil, fmt.Errorf("listing vinculos: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning vinculo: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vinculos: %w", err)
	}
	return ids, nil
}

// GetDestination returns the caregiver's registered push destination.
func (r *SQLiteRepository) GetDestination(ctx context.Context, caregiverID string) (*PushDestination, error) {
	var d PushDestination
	err := r.db.QueryRowContext(ctx,
		"SELECT caregiver_id, token, name FROM push_destinations WHERE caregiver_id = ?",
		caregiverID,
	).Scan(&d.CaregiverID, &d.Token, &d.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDestination
		}
		return nil, fmt.Errorf("querying push destination: %w", err)
	}
	return &d, nil
}
