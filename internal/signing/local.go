package signing

import (
	"context"
	"crypto/ed25519"
	"sync"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/keyring"
)

// LocalSigner signs with an in-memory derived keypair. It takes ownership
// of the keypair and wipes it on Close.
type LocalSigner struct {
	mu      sync.Mutex
	keypair *keyring.Keypair
	pubkey  chain.Pubkey
	closed  bool
}

func NewLocalSigner(keypair *keyring.Keypair) *LocalSigner {
	return &LocalSigner{keypair: keypair, pubkey: keypair.PublicKey}
}

func (s *LocalSigner) Kind() Kind {
	return KindLocal
}

func (s *LocalSigner) PublicKey() chain.Pubkey {
	return s.pubkey
}

func (s *LocalSigner) SignTransaction(ctx context.Context, tx *chain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSignerClosed
	}
	sig, err := chain.SignatureFromBytes(ed25519.Sign(s.keypair.PrivateKey, tx.Message.Serialize()))
	if err != nil {
		return err
	}
	return tx.AddSignature(s.pubkey, sig)
}

func (s *LocalSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.keypair.Zero()
	s.closed = true
	return nil
}
