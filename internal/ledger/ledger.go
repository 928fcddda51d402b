// Package ledger talks to a ledger node over its JSON-RPC HTTP API. The
// wallet core only needs the narrow Client surface; resilience against a
// flapping node lives here, not in the callers.
package ledger

import (
	"context"
	"errors"

	"sable-wallet/walletd/internal/chain"
)

var ErrAccountNotFound = errors.New("account not found on ledger")

// Commitment selects how settled the queried ledger state must be.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// OwnedAccount is a token account held by an owner, with its raw account
// data still unparsed.
type OwnedAccount struct {
	Address chain.Pubkey
	Data    []byte
}

type Client interface {
	LatestBlockhash(ctx context.Context) (chain.Hash, error)
	Balance(ctx context.Context, account chain.Pubkey) (uint64, error)
	AccountData(ctx context.Context, account chain.Pubkey) ([]byte, error)
	OwnedTokenAccounts(ctx context.Context, owner chain.Pubkey) ([]OwnedAccount, error)
	MinimumBalanceForRentExemption(ctx context.Context, space uint64) (uint64, error)
	SubmitTransaction(ctx context.Context, tx *chain.Transaction) (chain.Signature, error)
	Health(ctx context.Context) error
}
