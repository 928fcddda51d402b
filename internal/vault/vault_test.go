package vault

import (
	"bytes"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sable-wallet/walletd/internal/testutil/fsperm"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// BIP-39 seed for testMnemonic with an empty passphrase.
const testMnemonicSeedHex = "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc1" +
	"9a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

func TestVaultCreateUnlocksAndExports(t *testing.T) {
	v := New("")
	mnemonic, err := v.Create("pass-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if words := strings.Fields(mnemonic); len(words) != 24 {
		t.Fatalf("mnemonic should have 24 words, got %d", len(words))
	}
	if !v.ValidateMnemonic(mnemonic) {
		t.Fatal("created mnemonic must be valid")
	}
	if v.Locked() {
		t.Fatal("vault should be unlocked after create")
	}
	seed, err := v.Seed()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if len(seed) != 64 {
		t.Fatalf("seed length: got %d want 64", len(seed))
	}
	exported, err := v.ExportMnemonic("pass-1")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if exported != mnemonic {
		t.Fatal("exported mnemonic should match created mnemonic")
	}
}

func TestVaultImportDerivesKnownSeed(t *testing.T) {
	v := New("")
	if _, err := v.Import(testMnemonic, "pw"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	seed, err := v.Seed()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	want, err := hex.DecodeString(testMnemonicSeedHex)
	if err != nil {
		t.Fatalf("bad seed hex: %v", err)
	}
	if !bytes.Equal(seed, want) {
		t.Fatalf("seed mismatch: got %x", seed)
	}
}

func TestVaultLockWipesSeed(t *testing.T) {
	v := New("")
	if _, err := v.Import(testMnemonic, "pw"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	seed, err := v.Seed()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	// Callers get a copy; mutating it must not reach vault state.
	seed[0] ^= 0xff
	again, err := v.Seed()
	if err != nil {
		t.Fatalf("second seed read failed: %v", err)
	}
	if again[0] == seed[0] {
		t.Fatal("seed copy should be independent of vault state")
	}

	v.Lock()
	if !v.Locked() {
		t.Fatal("vault should report locked")
	}
	if _, err := v.Seed(); !errors.Is(err, ErrSeedNotAvailable) {
		t.Fatalf("seed after lock: got %v", err)
	}

	if err := v.Unlock("pw"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	back, err := v.Seed()
	if err != nil {
		t.Fatalf("seed after unlock failed: %v", err)
	}
	want, _ := hex.DecodeString(testMnemonicSeedHex)
	if !bytes.Equal(back, want) {
		t.Fatal("seed should be restored after unlock")
	}
}

func TestVaultUnlockWrongPasswordBacksOff(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	v := newWithClock("", clock)
	if _, err := v.Import(testMnemonic, "good-pass"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	v.Lock()

	if err := v.Unlock("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("first wrong unlock: got %v", err)
	}
	if err := v.Unlock("wrong"); !errors.Is(err, ErrPasswordLocked) {
		t.Fatalf("locked-out unlock: got %v", err)
	}
	if err := v.Unlock("good-pass"); !errors.Is(err, ErrPasswordLocked) {
		t.Fatal("lockout applies to good password too")
	}

	now = now.Add(2 * time.Second)
	if err := v.Unlock("good-pass"); err != nil {
		t.Fatalf("unlock after backoff failed: %v", err)
	}
	if v.Locked() {
		t.Fatal("vault should be unlocked")
	}
}

func TestVaultPersistsEnvelopeAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.enc")

	first := New(path)
	if _, err := first.Import(testMnemonic, "pw"); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	second := New(path)
	if err := second.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !second.HasEnvelope() {
		t.Fatal("reloaded vault should have an envelope")
	}
	if !second.Locked() {
		t.Fatal("reloaded vault should start locked")
	}
	if err := second.Unlock("pw"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	seed, err := second.Seed()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	want, _ := hex.DecodeString(testMnemonicSeedHex)
	if !bytes.Equal(seed, want) {
		t.Fatal("reloaded seed mismatch")
	}
}

func TestVaultPersistCreatesPrivateFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet", "seed.enc")
	v := New(path)
	if _, err := v.Import(testMnemonic, "pw"); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	fsperm.AssertPrivateDirPerm(t, filepath.Dir(path))
	fsperm.AssertPrivateFilePerm(t, path)
}

func TestVaultChangePassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.enc")
	v := New(path)
	if _, err := v.Import(testMnemonic, "old-pass"); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if err := v.ChangePassword("old-pass", "new-pass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := v.ExportMnemonic("old-pass"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("old password should fail: got %v", err)
	}
	exported, err := v.ExportMnemonic("new-pass")
	if err != nil {
		t.Fatalf("export with new password failed: %v", err)
	}
	if exported != testMnemonic {
		t.Fatal("mnemonic should survive password change")
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := reloaded.Unlock("new-pass"); err != nil {
		t.Fatalf("unlock persisted envelope failed: %v", err)
	}
}

func TestVaultInvalidInputs(t *testing.T) {
	v := New("")
	if _, err := v.Create(""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("empty password: got %v", err)
	}
	if _, err := v.Import("", "pw"); !errors.Is(err, ErrMnemonicRequired) {
		t.Fatalf("empty mnemonic: got %v", err)
	}
	if _, err := v.Import("not a mnemonic", "pw"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("invalid mnemonic: got %v", err)
	}
	if err := v.Unlock("pw"); !errors.Is(err, ErrNoEnvelope) {
		t.Fatalf("unlock without envelope: got %v", err)
	}
	if _, err := v.ExportMnemonic("pw"); !errors.Is(err, ErrNoEnvelope) {
		t.Fatalf("export without envelope: got %v", err)
	}
}
