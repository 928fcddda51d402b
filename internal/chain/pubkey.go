package chain

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58/base58"
)

const (
	PubkeySize    = 32
	SignatureSize = 64
	HashSize      = 32
)

// Pubkey is a 32-byte ed25519 public key, rendered as base58 on the wire
// and in the API.
type Pubkey [PubkeySize]byte

// Signature is a 64-byte ed25519 signature.
type Signature [SignatureSize]byte

// Hash is a 32-byte ledger hash (recent blockhash, account hashes).
type Hash [HashSize]byte

var (
	// SystemProgramID owns native accounts and lamport transfers.
	SystemProgramID = MustParsePubkey("11111111111111111111111111111111")
	// TokenProgramID owns token accounts and mints.
	TokenProgramID = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	// MemoProgramID attaches UTF-8 notes to transactions.
	MemoProgramID = MustParsePubkey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	// SysvarRentID is the rent sysvar account required by account initialization.
	SysvarRentID = MustParsePubkey("SysvarRent111111111111111111111111111111111")
	// NativeMint is the mint address representing the native token in
	// token-account form.
	NativeMint = MustParsePubkey("So11111111111111111111111111111111111111112")
)

func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("decode pubkey: %w", err)
	}
	return PubkeyFromBytes(raw)
}

func PubkeyFromBytes(raw []byte) (Pubkey, error) {
	if len(raw) != PubkeySize {
		return Pubkey{}, fmt.Errorf("invalid pubkey size: %d", len(raw))
	}
	var p Pubkey
	copy(p[:], raw)
	return p, nil
}

func MustParsePubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

func PubkeyFromPrivate(priv ed25519.PrivateKey) (Pubkey, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || len(pub) != PubkeySize {
		return Pubkey{}, fmt.Errorf("invalid private key")
	}
	return PubkeyFromBytes(pub)
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Bytes() []byte {
	return append([]byte(nil), p[:]...)
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) != SignatureSize {
		return Signature{}, fmt.Errorf("invalid signature size: %d", len(raw))
	}
	var s Signature
	copy(s[:], raw)
	return s, nil
}

func ParseSignature(v string) (Signature, error) {
	raw, err := base58.Decode(v)
	if err != nil {
		return Signature{}, fmt.Errorf("decode signature: %w", err)
	}
	return SignatureFromBytes(raw)
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

func ParseHash(v string) (Hash, error) {
	raw, err := base58.Decode(v)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash size: %d", len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}
