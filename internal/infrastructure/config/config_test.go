package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_MinimalConfig(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt_secret: test-secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "data/amparo.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if cfg.Ingestion.MaxEventsPerDevice != 500 {
		t.Errorf("MaxEventsPerDevice = %d, want 500", cfg.Ingestion.MaxEventsPerDevice)
	}
	if cfg.Notify.Workers != 4 {
		t.Errorf("Notify.Workers = %d, want 4", cfg.Notify.Workers)
	}
	if cfg.Security.AuthScanLimit != 1000 {
		t.Errorf("AuthScanLimit = %d, want 1000", cfg.Security.AuthScanLimit)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test.db
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail without a JWT secret")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt_secret: from-file
`)
	t.Setenv("AMPARO_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want env override", cfg.Security.JWTSecret)
	}
}

func TestLoad_InvalidNotifyChannel(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt_secret: s
notify:
  channel: pigeon
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should reject unknown notify channel")
	}
}

func TestLoad_FCMRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt_secret: s
notify:
  channel: fcm
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should require credentials for the fcm channel")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}
