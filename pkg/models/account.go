package models

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// accountFingerprintPrefix versions the fingerprint construction. A value
// carrying a different prefix was minted under a different scheme.
const accountFingerprintPrefix = "acct1"

// BuildAccountFingerprint derives the stable identifier for a wallet
// account from its signing public key. The fingerprint is not an address
// and cannot receive funds, so it is safe to quote in client-side indexes
// and support tooling.
func BuildAccountFingerprint(publicKey []byte) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid public key size: %d", len(publicKey))
	}
	h := blake2b.Sum256(publicKey)
	return accountFingerprintPrefix + base58.Encode(h[:]), nil
}

// VerifyAccountFingerprint reports whether fingerprint was built from
// publicKey.
func VerifyAccountFingerprint(fingerprint string, publicKey []byte) (bool, error) {
	expected, err := BuildAccountFingerprint(publicKey)
	if err != nil {
		return false, err
	}
	return fingerprint == expected, nil
}
