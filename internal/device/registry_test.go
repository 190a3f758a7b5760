package device

import (
	"strings"
	"testing"
	"time"
)

func TestRegistry_Register_NewDevice(t *testing.T) {
	db := testDB(t)
	reg := NewRegistry(NewSQLiteRepository(db), discardLogger{})
	ctx := t.Context()

	res, err := reg.Register(ctx, "ESP-001", "Pulseira da Maria")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if res.Rotated {
		t.Error("first registration should not report rotation")
	}
	if res.Secret == "" {
		t.Fatal("Register() should return the raw secret")
	}
	if res.Device.ShortCode == "" {
		t.Error("Register() should generate a short code")
	}
	if res.Device.Paired() {
		t.Error("new device should be unpaired")
	}

	// The raw secret must never be persisted in cleartext.
	var hash string
	if err := db.QueryRow("SELECT secret_hash FROM devices WHERE id = ?", res.Device.ID).Scan(&hash); err != nil {
		t.Fatalf("reading secret hash: %v", err)
	}
	if strings.Contains(hash, res.Secret) {
		t.Error("raw secret was persisted in cleartext")
	}
	if ok, _ := VerifySecret(res.Secret, hash); !ok {
		t.Error("stored hash should verify against the raw secret")
	}
}

func TestRegistry_Register_EmptySerial(t *testing.T) {
	reg := NewRegistry(NewSQLiteRepository(testDB(t)), discardLogger{})

	if _, err := reg.Register(t.Context(), "   ", ""); err != ErrSerialRequired {
		t.Errorf("Register() error = %v, want ErrSerialRequired", err)
	}
}

func TestRegistry_Register_RotatesExistingSerial(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	reg := NewRegistry(repo, discardLogger{})
	ctx := t.Context()

	first, err := reg.Register(ctx, "ESP-002", "original")
	if err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	// Pair the device, then revoke it, so rotation has state to preserve/reset.
	assistido := seedAssistido(t, db, "as-1", "Dona Helena")
	claimed, err := repo.ClaimPairing(ctx, first.Device.ID, assistido, "cg-1", time.Now(), false)
	if err != nil || !claimed {
		t.Fatalf("ClaimPairing() = (%v, %v)", claimed, err)
	}
	if _, err := db.Exec("UPDATE devices SET token_revoked = 1 WHERE id = ?", first.Device.ID); err != nil {
		t.Fatalf("revoking device: %v", err)
	}

	second, err := reg.Register(ctx, "ESP-002", "renamed")
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	if !second.Rotated {
		t.Error("re-registration should report rotation")
	}
	if second.Device.ID != first.Device.ID {
		t.Error("rotation should keep the same device identity")
	}
	if second.Secret == first.Secret {
		t.Error("rotation should generate a new secret")
	}
	if second.Device.TokenRevoked {
		t.Error("rotation should clear the revoked flag")
	}
	if second.Device.Name != "renamed" {
		t.Errorf("Name = %q, want %q", second.Device.Name, "renamed")
	}
	if !second.Device.Paired() || *second.Device.AssistidoID != assistido {
		t.Error("rotation should preserve pairing state")
	}

	// The old secret must no longer authenticate.
	auth := NewAuthenticator(repo, 10)
	if _, err := auth.Resolve(ctx, first.Secret); err != ErrBadCredential {
		t.Errorf("old secret Resolve() error = %v, want ErrBadCredential", err)
	}
}

func TestRegistry_IssuePairCode(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	reg := NewRegistry(repo, discardLogger{})
	ctx := t.Context()

	res, err := reg.Register(ctx, "ESP-003", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pc, err := reg.IssuePairCode(ctx, "ESP-003", 10*time.Minute)
	if err != nil {
		t.Fatalf("IssuePairCode() error = %v", err)
	}
	if len(pc.Code) != pairCodeLength {
		t.Errorf("pair code length = %d, want %d", len(pc.Code), pairCodeLength)
	}
	if !pc.ExpiresAt.After(time.Now()) {
		t.Error("pair code should expire in the future")
	}

	d, err := repo.GetByID(ctx, res.Device.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if d.PairCodeHash == nil {
		t.Fatal("pair code hash should be stored")
	}
	if d.PairCodeUsed {
		t.Error("fresh pair code should not be marked used")
	}
	if ok, _ := VerifySecret(pc.Code, *d.PairCodeHash); !ok {
		t.Error("stored hash should verify against the issued code")
	}
}

func TestRegistry_IssuePairCode_UnknownSerial(t *testing.T) {
	reg := NewRegistry(NewSQLiteRepository(testDB(t)), discardLogger{})

	if _, err := reg.IssuePairCode(t.Context(), "nope", time.Minute); err != ErrNotFound {
		t.Errorf("IssuePairCode() error = %v, want ErrNotFound", err)
	}
}
