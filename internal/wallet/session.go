// Package wallet binds an authenticated signing identity to the account
// operations available while logged in, and runs the login/logout state
// machine around it.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/ledger"
	"sable-wallet/walletd/internal/observe"
	"sable-wallet/walletd/internal/signing"

	"github.com/shopspring/decimal"
)

var (
	ErrMemoUnsupported = errors.New("memo is not supported on a native transfer")
	ErrNotAccountOwner = errors.New("token account is not owned by this wallet")
)

// TokenAmount is a raw token balance plus the scale needed to display it.
// Known is false while the mint's decimals have not been fetched yet; that
// is a pending state, not an error.
type TokenAmount struct {
	Raw      uint64
	Decimals uint8
	Known    bool
}

// UI returns the display amount, the raw balance scaled down by the
// mint's decimals.
func (a TokenAmount) UI() decimal.Decimal {
	if !a.Known {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Raw), -int32(a.Decimals))
}

type TokenAccountInfo struct {
	Address chain.Pubkey
	Mint    chain.Pubkey
	Owner   chain.Pubkey
	Amount  TokenAmount
	Frozen  bool
}

// Session is the live binding between one signer and one wallet index.
// Every chain operation builds a transaction, signs it through the signer
// and submits it to the ledger; signer failures pass through to the
// caller untouched and nothing is retried.
type Session struct {
	signer signing.Signer
	index  uint32
	client ledger.Client
	log    *slog.Logger

	mu       sync.Mutex
	decimals map[chain.Pubkey]uint8
}

func NewSession(signer signing.Signer, walletIndex uint32, client ledger.Client, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		signer:   signer,
		index:    walletIndex,
		client:   client,
		log:      log,
		decimals: make(map[chain.Pubkey]uint8),
	}
}

func (s *Session) PublicKey() chain.Pubkey {
	return s.signer.PublicKey()
}

func (s *Session) WalletIndex() uint32 {
	return s.index
}

func (s *Session) SignerKind() signing.Kind {
	return s.signer.Kind()
}

func (s *Session) Close() error {
	return s.signer.Close()
}

// Balance returns the wallet address's native balance in lamports.
func (s *Session) Balance(ctx context.Context) (uint64, error) {
	return s.client.Balance(ctx, s.signer.PublicKey())
}

// TokenAccounts lists every token account owned by the wallet address.
// Accounts whose mint data cannot be read yet come back with an unknown
// amount instead of failing the listing.
func (s *Session) TokenAccounts(ctx context.Context) ([]TokenAccountInfo, error) {
	owned, err := s.client.OwnedTokenAccounts(ctx, s.signer.PublicKey())
	if err != nil {
		return nil, err
	}
	infos := make([]TokenAccountInfo, 0, len(owned))
	for _, acc := range owned {
		parsed, err := chain.ParseTokenAccount(acc.Data)
		if err != nil {
			s.log.Warn("skipping undecodable token account", "address", acc.Address, "error", err)
			continue
		}
		amount := TokenAmount{Raw: parsed.Amount}
		if dec, ok := s.mintDecimals(ctx, parsed.Mint); ok {
			amount.Decimals = dec
			amount.Known = true
		}
		infos = append(infos, TokenAccountInfo{
			Address: acc.Address,
			Mint:    parsed.Mint,
			Owner:   parsed.Owner,
			Amount:  amount,
			Frozen:  parsed.State == chain.TokenStateFrozen,
		})
	}
	return infos, nil
}

// CreateTokenAccount allocates and initializes a token account for mint,
// paid for by the wallet. A fresh account keypair signs alongside the
// wallet and is wiped after submission. Returns the new account address.
func (s *Session) CreateTokenAccount(ctx context.Context, mint chain.Pubkey) (chain.Pubkey, chain.Signature, error) {
	rent, err := s.client.MinimumBalanceForRentExemption(ctx, chain.TokenAccountSize)
	if err != nil {
		return chain.Pubkey{}, chain.Signature{}, err
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return chain.Pubkey{}, chain.Signature{}, err
	}
	defer wipeBytes(priv)
	account, err := chain.PubkeyFromBytes(pub)
	if err != nil {
		return chain.Pubkey{}, chain.Signature{}, err
	}

	owner := s.signer.PublicKey()
	sig, err := s.submit(ctx, []chain.Instruction{
		chain.NewSystemCreateAccount(owner, account, rent, chain.TokenAccountSize, chain.TokenProgramID),
		chain.NewTokenInitializeAccount(account, mint, owner),
	}, priv)
	if err != nil {
		return chain.Pubkey{}, chain.Signature{}, err
	}
	s.log.Info("token account created", "account", account, "mint", mint)
	return account, sig, nil
}

// TransferToken moves amount raw units out of a token account the wallet
// owns. When source is the wallet address itself the call is a native
// transfer in disguise: it is redirected to TransferSOL, and a memo is
// rejected before any signing happens because the native path cannot
// carry one.
func (s *Session) TransferToken(ctx context.Context, source, destination chain.Pubkey, amount uint64, decimals uint8, memo string) (chain.Signature, error) {
	owner := s.signer.PublicKey()
	if source == owner {
		if memo != "" {
			return chain.Signature{}, ErrMemoUnsupported
		}
		return s.TransferSOL(ctx, destination, amount)
	}

	parsed, err := s.ownedTokenAccount(ctx, source)
	if err != nil {
		return chain.Signature{}, err
	}
	instructions := []chain.Instruction{
		chain.NewTokenTransferChecked(source, parsed.Mint, destination, owner, amount, decimals),
	}
	if memo != "" {
		instructions = append(instructions, chain.NewMemo(owner, memo))
	}
	return s.submit(ctx, instructions)
}

// TransferSOL sends lamports from the wallet address to destination.
func (s *Session) TransferSOL(ctx context.Context, destination chain.Pubkey, lamports uint64) (chain.Signature, error) {
	return s.submit(ctx, []chain.Instruction{
		chain.NewSystemTransfer(s.signer.PublicKey(), destination, lamports),
	})
}

// CloseTokenAccount reclaims a token account's rent into the wallet
// address and closes it. The account must belong to the wallet.
func (s *Session) CloseTokenAccount(ctx context.Context, address chain.Pubkey) (chain.Signature, error) {
	if _, err := s.ownedTokenAccount(ctx, address); err != nil {
		return chain.Signature{}, err
	}
	owner := s.signer.PublicKey()
	return s.submit(ctx, []chain.Instruction{
		chain.NewTokenCloseAccount(address, owner, owner),
	})
}

func (s *Session) submit(ctx context.Context, instructions []chain.Instruction, extraSigners ...ed25519.PrivateKey) (chain.Signature, error) {
	blockhash, err := s.client.LatestBlockhash(ctx)
	if err != nil {
		return chain.Signature{}, err
	}
	msg, err := chain.CompileMessage(s.signer.PublicKey(), blockhash, instructions)
	if err != nil {
		return chain.Signature{}, err
	}
	tx := chain.NewTransaction(msg)
	if len(extraSigners) > 0 {
		if err := tx.PartialSign(extraSigners...); err != nil {
			return chain.Signature{}, err
		}
	}
	err = s.signer.SignTransaction(ctx, tx)
	observe.SignRequests.WithLabelValues(string(s.signer.Kind()), signOutcome(err)).Inc()
	if err != nil {
		return chain.Signature{}, err
	}
	return s.client.SubmitTransaction(ctx, tx)
}

func signOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, signing.ErrUserRejected):
		return "rejected"
	case errors.Is(err, signing.ErrSignerBusy):
		return "busy"
	default:
		return "error"
	}
}

func (s *Session) ownedTokenAccount(ctx context.Context, address chain.Pubkey) (chain.TokenAccount, error) {
	data, err := s.client.AccountData(ctx, address)
	if err != nil {
		return chain.TokenAccount{}, err
	}
	parsed, err := chain.ParseTokenAccount(data)
	if err != nil {
		return chain.TokenAccount{}, err
	}
	if parsed.Owner != s.signer.PublicKey() {
		return chain.TokenAccount{}, fmt.Errorf("%w: %s", ErrNotAccountOwner, address)
	}
	return parsed, nil
}

// mintDecimals resolves a mint's decimals through the per-session cache.
func (s *Session) mintDecimals(ctx context.Context, mint chain.Pubkey) (uint8, bool) {
	// The wrapped native mint always scales by 9.
	if mint == chain.NativeMint {
		return 9, true
	}
	s.mu.Lock()
	dec, ok := s.decimals[mint]
	s.mu.Unlock()
	if ok {
		return dec, true
	}

	data, err := s.client.AccountData(ctx, mint)
	if err != nil {
		return 0, false
	}
	parsed, err := chain.ParseMint(data)
	if err != nil {
		s.log.Warn("undecodable mint data", "mint", mint, "error", err)
		return 0, false
	}
	s.mu.Lock()
	s.decimals[mint] = parsed.Decimals
	s.mu.Unlock()
	return parsed.Decimals, true
}

func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
