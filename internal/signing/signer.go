// Package signing abstracts how transaction signatures are produced: from
// a locally derived keypair or from a detached signing device that asks the
// user for confirmation. Callers are written against Signer and must not
// care which one they hold.
package signing

import (
	"context"
	"errors"

	"sable-wallet/walletd/internal/chain"
)

var (
	ErrSignerClosed    = errors.New("signer is closed")
	ErrSignerBusy      = errors.New("signer is busy with another request")
	ErrUserRejected    = errors.New("user rejected the request on the device")
	ErrDeviceNotFound  = errors.New("signing device not found")
	ErrDeviceComm      = errors.New("device communication failed")
	ErrDeviceProtocol  = errors.New("unexpected response from signing device")
	ErrTransportClosed = errors.New("device transport is closed")
)

// Kind identifies the provider backing a signer.
type Kind string

const (
	KindLocal  Kind = "local"
	KindDevice Kind = "device"
)

// Signer signs transactions for exactly one derived account. The public
// key is fixed at construction and never changes; SignTransaction adds the
// signer's signature to the transaction without disturbing signatures other
// parties already contributed.
type Signer interface {
	Kind() Kind
	PublicKey() chain.Pubkey
	SignTransaction(ctx context.Context, tx *chain.Transaction) error
	Close() error
}
