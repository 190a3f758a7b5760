package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/device"
	"github.com/amparo-saude/amparo-core/internal/event"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/config"
	"github.com/amparo-saude/amparo-core/internal/infrastructure/logging"
	"github.com/amparo-saude/amparo-core/internal/pairing"
)

const testJWTSecret = "test-secret-0123456789abcdef0123"

// testDB creates a temporary SQLite database with the full schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
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

		CREATE TABLE vinculos (
			caregiver_id TEXT NOT NULL,
			assistido_id TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'cuidador',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (caregiver_id, assistido_id)
		) STRICT;

		CREATE TABLE push_destinations (
			caregiver_id TEXT PRIMARY KEY,
			token TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
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
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE fall_events (
			id TEXT PRIMARY KEY,
			event_id TEXT UNIQUE,
			dispositivo_id TEXT NOT NULL,
			assistido_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			occurred_at TEXT,
			eixo_x REAL NOT NULL DEFAULT 0,
			eixo_y REAL NOT NULL DEFAULT 0,
			eixo_z REAL NOT NULL DEFAULT 0,
			totalacc REAL NOT NULL DEFAULT 0,
			raw_payload TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (dispositivo_id) REFERENCES devices(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	return db
}

// newTestServer wires a full server over a fresh database with one
// assistido (as-1) linked to caregiver cg-1.
func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()

	db := testDB(t)
	if _, err := db.Exec(`
		INSERT INTO assistidos (id, name) VALUES ('as-1', 'Dona Helena');
		INSERT INTO vinculos (caregiver_id, assistido_id) VALUES ('cg-1', 'as-1');
	`); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	logger := logging.New(config.LoggingConfig{Level: "error", Output: "stderr"}, "test")
	devices := device.NewSQLiteRepository(db)
	links := care.NewSQLiteRepository(db)
	events := event.NewSQLiteRepository(db)
	registry := device.NewRegistry(devices, logger)
	pipeline := event.NewPipeline(event.PipelineConfig{
		Events:    events,
		Devices:   devices,
		Retention: event.NewRetentionManager(events, 500, logger),
		Logger:    logger,
	})

	server, err := New(Deps{
		Security:    config.SecurityConfig{JWTSecret: testJWTSecret, AuthScanLimit: 1000},
		Pairing:     config.PairingConfig{PairCodeTTL: 600},
		Logger:      logger,
		Registry:    registry,
		Resolver:    device.NewAuthenticator(devices, 1000),
		Coordinator: pairing.NewCoordinator(devices, links, logger),
		Pipeline:    pipeline,
		Events:      events,
		Links:       links,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ts := httptest.NewServer(server.buildRouter())
	t.Cleanup(ts.Close)
	return ts, db
}

// caregiverToken signs a caregiver JWT the way the caregiver-facing
// service does.
func caregiverToken(t *testing.T, caregiverID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": caregiverID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

// doJSON issues a request with an optional bearer credential and
// decodes the JSON response.
func doJSON(t *testing.T, method, url, bearer string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("health body = %v", body)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	jwt1 := caregiverToken(t, "cg-1")

	// Register a factory-fresh device.
	status, reg := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/register", "",
		map[string]any{"serial": "ESP-001", "name": "Pulseira da Helena"})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %v", status, reg)
	}
	secret, _ := reg["secret"].(string)
	shortCode, _ := reg["short_code"].(string)
	if secret == "" || shortCode == "" {
		t.Fatalf("register response missing secret/short_code: %v", reg)
	}

	// An unpaired device cannot submit events yet.
	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/event", secret,
		map[string]any{"event_id": "e-0", "event_type": "queda"})
	if status != http.StatusBadRequest {
		t.Fatalf("unpaired event status = %d, want 400: %v", status, body)
	}

	// The caregiver pairs it to the assistido by short code.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1"})
	if status != http.StatusOK {
		t.Fatalf("pair status = %d, want 200: %v", status, body)
	}

	// First event: fresh insert.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/event", secret,
		map[string]any{
			"event_id": "e-1", "event_type": "queda",
			"eixo_x": 0.12, "eixo_y": -0.43, "eixo_z": 9.72, "totalacc": 28.5,
		})
	if status != http.StatusCreated {
		t.Fatalf("event status = %d, want 201: %v", status, body)
	}
	if body["accepted"] != true || body["already_existed"] != false {
		t.Errorf("event body = %v", body)
	}

	// Replay of the same client event ID: acknowledged, not duplicated.
	status, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/event", secret,
		map[string]any{"event_id": "e-1", "event_type": "queda", "totalacc": 99})
	if status != http.StatusOK {
		t.Fatalf("replay status = %d, want 200: %v", status, body)
	}
	if body["already_existed"] != true {
		t.Errorf("replay body = %v", body)
	}

	// Heartbeat keeps working regardless.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/heartbeat", secret, map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("heartbeat status = %d, want 200", status)
	}

	// The caregiver sees exactly one queda.
	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/assistidos/as-1/quedas", jwt1, nil)
	if status != http.StatusOK {
		t.Fatalf("history status = %d, want 200: %v", status, body)
	}
	if total, _ := body["total"].(float64); total != 1 {
		t.Errorf("history total = %v, want 1", body["total"])
	}

	// Unpair, then events are rejected again.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/unpair", jwt1,
		map[string]any{"short_code": shortCode})
	if status != http.StatusOK {
		t.Fatalf("unpair status = %d, want 200", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/event", secret,
		map[string]any{"event_id": "e-2", "event_type": "queda"})
	if status != http.StatusBadRequest {
		t.Fatalf("post-unpair event status = %d, want 400", status)
	}

	// History survives unpairing.
	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/assistidos/as-1/quedas", jwt1, nil)
	if status != http.StatusOK {
		t.Fatalf("history status = %d, want 200", status)
	}
	if total, _ := body["total"].(float64); total != 1 {
		t.Errorf("history total after unpair = %v, want 1", body["total"])
	}
}

func TestRegisterRotationInvalidatesOldSecret(t *testing.T) {
	ts, _ := newTestServer(t)

	_, first := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/register", "",
		map[string]any{"serial": "ESP-002"})
	oldSecret, _ := first["secret"].(string)

	status, second := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/register", "",
		map[string]any{"serial": "ESP-002"})
	if status != http.StatusOK {
		t.Fatalf("rotation status = %d, want 200: %v", status, second)
	}
	newSecret, _ := second["secret"].(string)
	if newSecret == oldSecret {
		t.Fatal("rotation should issue a fresh secret")
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/heartbeat", oldSecret, map[string]any{})
	if status != http.StatusUnauthorized {
		t.Errorf("old secret status = %d, want 401", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/heartbeat", newSecret, map[string]any{})
	if status != http.StatusOK {
		t.Errorf("new secret status = %d, want 200", status)
	}
}

func TestCaregiverAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	// No token.
	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", "",
		map[string]any{"serial": "ESP-001", "assistido_id": "as-1"})
	if status != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", status)
	}

	// Token signed with the wrong secret.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cg-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("signing forged token: %v", err)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", forged,
		map[string]any{"serial": "ESP-001", "assistido_id": "as-1"})
	if status != http.StatusUnauthorized {
		t.Errorf("forged token status = %d, want 401", status)
	}

	// Expired token.
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cg-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", expired,
		map[string]any{"serial": "ESP-001", "assistido_id": "as-1"})
	if status != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", status)
	}
}

func TestPairAuthorizationAndConflicts(t *testing.T) {
	ts, db := newTestServer(t)

	_, reg := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/register", "",
		map[string]any{"serial": "ESP-003"})
	shortCode, _ := reg["short_code"].(string)

	// A caregiver without a vínculo is refused.
	stranger := caregiverToken(t, "cg-stranger")
	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", stranger,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1"})
	if status != http.StatusForbidden {
		t.Errorf("unlinked pair status = %d, want 403", status)
	}

	// Unknown assistido: the caregiver holds no vínculo to it either.
	jwt1 := caregiverToken(t, "cg-1")
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-missing"})
	if status != http.StatusForbidden {
		t.Errorf("unknown assistido status = %d, want 403", status)
	}

	// Unknown device.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": "NOSUCH", "assistido_id": "as-1"})
	if status != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", status)
	}

	// Pairing twice conflicts.
	if status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1"}); status != http.StatusOK {
		t.Fatalf("pair status = %d, want 200", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1"})
	if status != http.StatusConflict {
		t.Errorf("second pair status = %d, want 409", status)
	}

	// A second caregiver on a second assistido cannot unpair somebody
	// else's device.
	if _, err := db.Exec(`
		INSERT INTO assistidos (id, name) VALUES ('as-2', 'Seu João');
		INSERT INTO vinculos (caregiver_id, assistido_id) VALUES ('cg-2', 'as-2');
	`); err != nil {
		t.Fatalf("seeding second assistido: %v", err)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/unpair", caregiverToken(t, "cg-2"),
		map[string]any{"short_code": shortCode})
	if status != http.StatusForbidden {
		t.Errorf("cross-caregiver unpair status = %d, want 403", status)
	}
}

func TestPairCodeFlow(t *testing.T) {
	ts, _ := newTestServer(t)
	jwt1 := caregiverToken(t, "cg-1")

	_, reg := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/register", "",
		map[string]any{"serial": "ESP-004"})
	shortCode, _ := reg["short_code"].(string)

	status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair-code", jwt1,
		map[string]any{"serial": "ESP-004"})
	if status != http.StatusOK {
		t.Fatalf("pair-code status = %d, want 200: %v", status, body)
	}
	code, _ := body["pair_code"].(string)
	if code == "" {
		t.Fatalf("pair-code response missing code: %v", body)
	}

	// Pairing without the code is a validation failure, with a wrong
	// code a forbidden one.
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1"})
	if status != http.StatusBadRequest {
		t.Errorf("missing code status = %d, want 400", status)
	}
	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1", "pair_code": "WRONG123"})
	if status != http.StatusForbidden {
		t.Errorf("wrong code status = %d, want 403", status)
	}

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/device/pair", jwt1,
		map[string]any{"short_code": shortCode, "assistido_id": "as-1", "pair_code": code})
	if status != http.StatusOK {
		t.Errorf("pair with code status = %d, want 200", status)
	}
}

func TestHistoryAuthorizationAndPaging(t *testing.T) {
	ts, db := newTestServer(t)
	jwt1 := caregiverToken(t, "cg-1")

	// Somebody else's history is off limits.
	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/assistidos/as-1/quedas",
		caregiverToken(t, "cg-stranger"), nil)
	if status != http.StatusForbidden {
		t.Errorf("unlinked history status = %d, want 403", status)
	}

	// Seed a device with three events directly.
	if _, err := db.Exec(`
		INSERT INTO devices (id, serial, short_code, secret_hash, assistido_id)
		VALUES ('dev-x', 'ESP-005', 'SCX', 'hash', 'as-1');
		INSERT INTO fall_events (id, event_id, dispositivo_id, assistido_id, event_type, created_at)
		VALUES
			('evt-1', 'e-1', 'dev-x', 'as-1', 'queda', '2026-01-10T10:00:00Z'),
			('evt-2', 'e-2', 'dev-x', 'as-1', 'queda', '2026-01-10T11:00:00Z'),
			('evt-3', 'e-3', 'dev-x', 'as-1', 'queda', '2026-01-10T12:00:00Z');
	`); err != nil {
		t.Fatalf("seeding events: %v", err)
	}

	status, body := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/assistidos/as-1/quedas?page=1&page_size=2", ts.URL), jwt1, nil)
	if status != http.StatusOK {
		t.Fatalf("history status = %d, want 200: %v", status, body)
	}
	if total, _ := body["total"].(float64); total != 3 {
		t.Errorf("total = %v, want 3", body["total"])
	}
	quedas, _ := body["quedas"].([]any)
	if len(quedas) != 2 {
		t.Fatalf("page size = %d, want 2", len(quedas))
	}
	newest, _ := quedas[0].(map[string]any)
	if newest["id"] != "evt-3" {
		t.Errorf("first row = %v, want newest evt-3", newest["id"])
	}
}
