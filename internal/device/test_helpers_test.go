package device

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the device schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "device-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE assistidos (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			birth_date TEXT,
			notes TEXT,
			phones TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			serial TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			short_code TEXT NOT NULL UNIQUE,
			secret_hash TEXT NOT NULL,
			token_revoked INTEGER NOT NULL DEFAULT 0,
			pair_code_hash TEXT,
			pair_code_expires_at TEXT,
			pair_code_used INTEGER NOT NULL DEFAULT 0,
			assistido_id TEXT,
			paired_by TEXT,
			paired_at TEXT,
			last_seen TEXT,
			firmware_version TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (assistido_id) REFERENCES assistidos(id) ON DELETE SET NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying device schema: %v", err)
	}

	return db
}

// seedAssistido inserts an assistido row and returns its id.
func seedAssistido(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()

	if _, err := db.Exec(
		"INSERT INTO assistidos (id, name) VALUES (?, ?)", id, name); err != nil {
		t.Fatalf("seeding assistido %s: %v", id, err)
	}
	return id
}

// discardLogger satisfies Logger without producing output.
type discardLogger struct{}

func (discardLogger) Info(string, ...any) {}
func (discardLogger) Warn(string, ...any) {}
