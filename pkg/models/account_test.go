package models

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
)

func TestBuildAccountFingerprintAndVerify(t *testing.T) {
	t.Parallel()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	fp, err := BuildAccountFingerprint(pub)
	if err != nil {
		t.Fatalf("build fingerprint failed: %v", err)
	}
	if !strings.HasPrefix(fp, "acct1") {
		t.Fatalf("fingerprint must have acct1 prefix, got: %s", fp)
	}
	ok, err := VerifyAccountFingerprint(fp, pub)
	if err != nil {
		t.Fatalf("verify fingerprint failed: %v", err)
	}
	if !ok {
		t.Fatal("fingerprint verification should pass")
	}

	other, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate second key failed: %v", err)
	}
	ok, err = VerifyAccountFingerprint(fp, other)
	if err != nil {
		t.Fatalf("verify against other key failed: %v", err)
	}
	if ok {
		t.Fatal("fingerprint must not verify against a different key")
	}
}

func TestBuildAccountFingerprintStableForKnownKey(t *testing.T) {
	t.Parallel()

	pub := make([]byte, ed25519.PublicKeySize)
	for i := range pub {
		pub[i] = byte(i)
	}
	fp, err := BuildAccountFingerprint(pub)
	if err != nil {
		t.Fatalf("build fingerprint failed: %v", err)
	}
	const want = "acct1Eg9cRp58GidoPZFa63taT63KnFdvD3reLPisrR2ijT9X"
	if fp != want {
		t.Fatalf("fingerprint mismatch: got %s want %s", fp, want)
	}
}

func TestBuildAccountFingerprintRejectsBadKeySize(t *testing.T) {
	t.Parallel()

	if _, err := BuildAccountFingerprint([]byte{1, 2, 3}); err == nil {
		t.Fatal("short key must be rejected")
	}
	if _, err := BuildAccountFingerprint(make([]byte, 64)); err == nil {
		t.Fatal("oversized key must be rejected")
	}
	if _, err := VerifyAccountFingerprint("acct1whatever", nil); err == nil {
		t.Fatal("verify with nil key must error")
	}
}
