package keyring

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"sable-wallet/walletd/internal/chain"

	"github.com/tyler-smith/go-bip32"
)

var (
	ErrSeedSize      = errors.New("seed must be between 16 and 64 bytes")
	ErrUnknownScheme = errors.New("unknown derivation scheme")
	ErrIndexRange    = errors.New("derivation index out of range")
)

const (
	MinSeedSize = 16
	MaxSeedSize = 64
)

// Scheme selects how account keys are derived from the master seed.
type Scheme string

const (
	// SchemeDefault derives m/501'/{walletIndex}'/0'/{accountIndex}' over
	// SLIP-0010 ed25519. Every component is hardened.
	SchemeDefault Scheme = "default"
	// SchemeBip44Change derives m/44'/501'/{walletIndex}'/0' over
	// SLIP-0010 ed25519, compatible with BIP-44 change-level wallets.
	SchemeBip44Change Scheme = "bip44-change"
	// SchemeLegacyBip32 derives m/501'/{walletIndex}'/0/{accountIndex}
	// over secp256k1 BIP-32 and uses the resulting private scalar as the
	// ed25519 seed. Import compatibility for old wallets only.
	SchemeLegacyBip32 Scheme = "legacy-bip32"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeDefault, SchemeBip44Change, SchemeLegacyBip32:
		return Scheme(s), nil
	case "":
		return SchemeDefault, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
}

// Keypair is a derived signing key. Zero wipes the private half.
type Keypair struct {
	PublicKey  chain.Pubkey
	PrivateKey ed25519.PrivateKey
}

func (k *Keypair) Zero() {
	if k == nil {
		return
	}
	zeroBytes(k.PrivateKey)
	k.PrivateKey = nil
}

// PathFor returns the derivation path a scheme uses for the given wallet
// and account indices.
func PathFor(scheme Scheme, walletIndex, accountIndex uint32) (Path, error) {
	if walletIndex >= HardenedOffset || accountIndex >= HardenedOffset {
		return nil, ErrIndexRange
	}
	h := HardenedOffset
	switch scheme {
	case SchemeDefault:
		return Path{h + CoinType, h + walletIndex, h + 0, h + accountIndex}, nil
	case SchemeBip44Change:
		return Path{h + 44, h + CoinType, h + walletIndex, h + 0}, nil
	case SchemeLegacyBip32:
		return Path{h + CoinType, h + walletIndex, 0, accountIndex}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// Derive produces the keypair for (scheme, walletIndex, accountIndex) from
// the master seed. Identical inputs always produce identical keys; the seed
// itself is never retained.
func Derive(seed []byte, scheme Scheme, walletIndex, accountIndex uint32) (*Keypair, error) {
	if len(seed) < MinSeedSize || len(seed) > MaxSeedSize {
		return nil, ErrSeedSize
	}
	path, err := PathFor(scheme, walletIndex, accountIndex)
	if err != nil {
		return nil, err
	}

	var secret []byte
	switch scheme {
	case SchemeDefault, SchemeBip44Change:
		secret, err = deriveSlip10(seed, path)
	case SchemeLegacyBip32:
		secret, err = deriveBip32Secret(seed, path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	if err != nil {
		return nil, err
	}
	defer zeroBytes(secret)

	priv := ed25519.NewKeyFromSeed(secret)
	pub, err := chain.PubkeyFromPrivate(priv)
	if err != nil {
		zeroBytes(priv)
		return nil, err
	}
	return &Keypair{PublicKey: pub, PrivateKey: priv}, nil
}

// DeriveDefault is Derive for account index zero, the single account each
// wallet index exposes by default.
func DeriveDefault(seed []byte, scheme Scheme, walletIndex uint32) (*Keypair, error) {
	return Derive(seed, scheme, walletIndex, 0)
}

// DeriveAddress returns only the public address for an index, wiping the
// private key before returning.
func DeriveAddress(seed []byte, scheme Scheme, walletIndex uint32) (chain.Pubkey, error) {
	kp, err := DeriveDefault(seed, scheme, walletIndex)
	if err != nil {
		return chain.Pubkey{}, err
	}
	pub := kp.PublicKey
	kp.Zero()
	return pub, nil
}

func deriveBip32Secret(seed []byte, path Path) ([]byte, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("bip32 master key: %w", err)
	}
	for _, index := range path {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("bip32 child %d: %w", index, err)
		}
	}
	if len(key.Key) != ed25519.SeedSize {
		return nil, fmt.Errorf("bip32 key size: %d", len(key.Key))
	}
	return append([]byte(nil), key.Key...), nil
}
