package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Repository defines the interface for fall event persistence.
type Repository interface {
	// Insert stores a new fall event. Returns ErrDuplicateEventID when
	// the client event ID is already present.
	Insert(ctx context.Context, e *FallEvent) error

	// GetByEventID retrieves an event by its client-supplied ID.
	// Returns ErrNotFound when no event carries it.
	GetByEventID(ctx context.Context, eventID string) (*FallEvent, error)

	// CountByDevice returns the number of stored events for a device.
	CountByDevice(ctx context.Context, deviceID string) (int, error)

	// EvictOldest deletes every event for the device beyond the keep
	// most recent, returning the number of rows removed.
	EvictOldest(ctx context.Context, deviceID string, keep int) (int64, error)

	// ListByAssistido returns one page of an assistido's fall history,
	// newest first, along with the total row count.
	ListByAssistido(ctx context.Context, assistidoID string, page, pageSize int) ([]*FallEvent, int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const eventColumns = `id, event_id, dispositivo_id, assistido_id, event_type,
	occurred_at, eixo_x, eixo_y, eixo_z, totalacc, raw_payload, created_at`

// Insert stores a new fall event. The ID is generated if empty.
//
// A UNIQUE violation on event_id maps to ErrDuplicateEventID so the
// pipeline can fold the check-then-insert race into idempotence.
func (r *SQLiteRepository) Insert(ctx context.Context, e *FallEvent) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()[:16]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	var eventID any
	if e.EventID != nil {
		eventID = *e.EventID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fall_events (id, event_id, dispositivo_id, assistido_id, event_type,
			occurred_at, eixo_x, eixo_y, eixo_z, totalacc, raw_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, eventID, e.DispositivoID, e.AssistidoID, e.EventType,
		formatTime(e.OccurredAt), e.EixoX, e.EixoY, e.EixoZ, e.TotalAcc,
		e.RawPayload, formatTime(e.CreatedAt),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateEventID
		}
		return fmt.Errorf("inserting fall event: %w", err)
	}
	return nil
}

// GetByEventID retrieves an event by its client-supplied ID.
func (r *SQLiteRepository) GetByEventID(ctx context.Context, eventID string) (*FallEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM fall_events WHERE event_id = ?`, eventID)
	return scanEvent(row.Scan)
}

// CountByDevice returns the number of stored events for a device.
func (r *SQLiteRepository) CountByDevice(ctx context.Context, deviceID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fall_events WHERE dispositivo_id = ?", deviceID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting fall events: %w", err)
	}
	return n, nil
}

// EvictOldest deletes everything for the device beyond the keep most
// recent rows in a single batch.
func (r *SQLiteRepository) EvictOldest(ctx context.Context, deviceID string, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM fall_events
		 WHERE dispositivo_id = ?
		   AND id NOT IN (
			SELECT id FROM fall_events
			WHERE dispositivo_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?)`,
		deviceID, deviceID, keep)
	if err != nil {
		return 0, fmt.Errorf("evicting fall events: %w", err)
	}

	deleted, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return deleted, nil
}

// ListByAssistido returns one page of history, newest first, plus the
// total row count for pagination.
func (r *SQLiteRepository) ListByAssistido(ctx context.Context, assistidoID string, page, pageSize int) ([]*FallEvent, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM fall_events WHERE assistido_id = ?", assistidoID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting history: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM fall_events
		 WHERE assistido_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		assistidoID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var events []*FallEvent
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating history: %w", err)
	}
	return events, total, nil
}

// scanEvent scans one fall event row, mapping sql.ErrNoRows to
// ErrNotFound.
func scanEvent(scan func(dest ...any) error) (*FallEvent, error) {
	var e FallEvent
	var eventID, occurredAt, rawPayload sql.NullString
	var createdAt string

	err := scan(&e.ID, &eventID, &e.DispositivoID, &e.AssistidoID, &e.EventType,
		&occurredAt, &e.EixoX, &e.EixoY, &e.EixoZ, &e.TotalAcc, &rawPayload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning fall event: %w", err)
	}

	if eventID.Valid {
		id := eventID.String
		e.EventID = &id
	}
	if occurredAt.Valid {
		e.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt.String) //nolint:errcheck // format is controlled
	}
	if rawPayload.Valid {
		e.RawPayload = rawPayload.String
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
