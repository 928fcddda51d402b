package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/keyring"
	"sable-wallet/walletd/internal/ledger"
	"sable-wallet/walletd/internal/observe"
	"sable-wallet/walletd/internal/signing"
	"sable-wallet/walletd/internal/storage"
	"sable-wallet/walletd/internal/vault"
)

var (
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrAlreadyLoggedIn      = errors.New("already logged in")
	ErrActivationInProgress = errors.New("login already in progress")
	ErrUnknownProviderKind  = errors.New("unknown signing provider kind")
)

type State string

const (
	StateLoggedOut  State = "logged_out"
	StateActivating State = "activating"
	StateLoggedIn   State = "logged_in"
)

// DeviceDialer opens a transport to the hardware signer bridge.
type DeviceDialer func(ctx context.Context) (signing.Transport, error)

// Params selects how a login builds its signer. Password unlocks the
// vault for local signing and may be empty when the vault is already
// unlocked; device logins ignore it.
type Params struct {
	Kind        signing.Kind
	Password    string
	WalletIndex uint32
}

type Status struct {
	State       State
	WalletIndex uint32
	WalletCount uint32
	Scheme      string
	Address     string
	SignerKind  signing.Kind
}

// Registry runs the logged-out / activating / logged-in lifecycle. A
// signer exists only while logged in; switching wallets builds a new one
// because signers are immutable once constructed.
type Registry struct {
	vault      *vault.Vault
	client     ledger.Client
	settings   *storage.SettingsStore
	dialDevice DeviceDialer
	log        *slog.Logger

	mu      sync.Mutex
	state   State
	session *Session
}

func NewRegistry(v *vault.Vault, client ledger.Client, settings *storage.SettingsStore, dial DeviceDialer, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		vault:      v,
		client:     client,
		settings:   settings,
		dialDevice: dial,
		log:        log,
		state:      StateLoggedOut,
	}
}

// Login unlocks the identity and builds the signer for the requested
// wallet index. Only one activation runs at a time; any failure along
// the way reverts to logged out and surfaces to the caller.
func (r *Registry) Login(ctx context.Context, params Params) error {
	r.mu.Lock()
	switch r.state {
	case StateActivating:
		r.mu.Unlock()
		return ErrActivationInProgress
	case StateLoggedIn:
		r.mu.Unlock()
		return ErrAlreadyLoggedIn
	}
	r.state = StateActivating
	r.mu.Unlock()

	signer, err := r.activate(ctx, params)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.state = StateLoggedOut
		return err
	}
	r.session = NewSession(signer, params.WalletIndex, r.client, r.log)
	r.state = StateLoggedIn
	r.log.Info("wallet logged in", "kind", signer.Kind(), "wallet_index", params.WalletIndex)
	return nil
}

func (r *Registry) activate(ctx context.Context, params Params) (signing.Signer, error) {
	if err := r.ensureIndexInRange(params.WalletIndex); err != nil {
		return nil, err
	}
	signer, err := r.buildSigner(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := r.settings.SetWalletIndex(params.WalletIndex); err != nil {
		signer.Close()
		return nil, err
	}
	return signer, nil
}

// Logout locks the vault and tears the session down. An in-flight device
// confirmation resolves with a transport error when the signer closes.
func (r *Registry) Logout() error {
	r.mu.Lock()
	if r.state == StateActivating {
		r.mu.Unlock()
		return ErrActivationInProgress
	}
	session := r.session
	r.session = nil
	r.state = StateLoggedOut
	r.mu.Unlock()

	r.vault.Lock()
	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return err
	}
	r.log.Info("wallet logged out")
	return nil
}

// Session returns the active session.
func (r *Registry) Session() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateLoggedIn || r.session == nil {
		return nil, ErrNotLoggedIn
	}
	return r.session, nil
}

func (r *Registry) Status() Status {
	settings := r.settings.Get()
	r.mu.Lock()
	defer r.mu.Unlock()
	status := Status{
		State:       r.state,
		WalletIndex: settings.WalletIndex,
		WalletCount: settings.WalletCount,
		Scheme:      settings.Scheme,
	}
	if r.state == StateLoggedIn && r.session != nil {
		status.Address = r.session.PublicKey().String()
		status.SignerKind = r.session.SignerKind()
	}
	return status
}

// SelectWallet switches the active wallet index. The replacement signer
// is built first; the old session keeps working until the swap succeeds
// and is closed after.
func (r *Registry) SelectWallet(ctx context.Context, index uint32) error {
	r.mu.Lock()
	if r.state != StateLoggedIn || r.session == nil {
		r.mu.Unlock()
		return ErrNotLoggedIn
	}
	old := r.session
	kind := old.SignerKind()
	r.mu.Unlock()

	signer, err := r.activate(ctx, Params{Kind: kind, WalletIndex: index})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != StateLoggedIn || r.session != old {
		r.mu.Unlock()
		signer.Close()
		return ErrNotLoggedIn
	}
	r.session = NewSession(signer, index, r.client, r.log)
	r.mu.Unlock()

	old.Close()
	r.log.Info("wallet selected", "wallet_index", index)
	return nil
}

// ListDerivedAddresses derives addresses for wallet indices 0..count-1
// without activating a session. The vault must be unlocked.
func (r *Registry) ListDerivedAddresses(count uint32) ([]chain.Pubkey, error) {
	seed, err := r.vault.Seed()
	if err != nil {
		return nil, err
	}
	defer wipeBytes(seed)

	scheme := r.scheme()
	addrs := make([]chain.Pubkey, 0, count)
	for i := uint32(0); i < count; i++ {
		addr, err := keyring.DeriveAddress(seed, scheme, i)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// AddWallet grows the tracked wallet count by one and returns the index
// of the new wallet.
func (r *Registry) AddWallet() (uint32, error) {
	index, err := r.settings.AddWallet()
	if err != nil {
		return 0, err
	}
	r.log.Info("wallet added", "wallet_index", index)
	return index, nil
}

func (r *Registry) buildSigner(ctx context.Context, params Params) (signing.Signer, error) {
	switch params.Kind {
	case signing.KindLocal:
		if params.Password != "" {
			if err := r.vault.Unlock(params.Password); err != nil {
				return nil, err
			}
		}
		return r.deriveLocalSigner(params.WalletIndex)
	case signing.KindDevice:
		if r.dialDevice == nil {
			return nil, fmt.Errorf("%w: no device bridge configured", signing.ErrDeviceNotFound)
		}
		transport, err := r.dialDevice(ctx)
		if err != nil {
			return nil, err
		}
		path, err := keyring.PathFor(r.scheme(), params.WalletIndex, 0)
		if err != nil {
			transport.Close()
			return nil, err
		}
		signer, err := signing.NewDeviceSigner(ctx, transport, path)
		if err != nil {
			transport.Close()
			return nil, err
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProviderKind, params.Kind)
	}
}

func (r *Registry) deriveLocalSigner(walletIndex uint32) (signing.Signer, error) {
	seed, err := r.vault.Seed()
	if err != nil {
		return nil, err
	}
	defer wipeBytes(seed)
	started := time.Now()
	kp, err := keyring.Derive(seed, r.scheme(), walletIndex, 0)
	if err != nil {
		return nil, err
	}
	observe.DeriveDuration.Observe(time.Since(started).Seconds())
	return signing.NewLocalSigner(kp), nil
}

func (r *Registry) ensureIndexInRange(index uint32) error {
	if count := r.settings.Get().WalletCount; index >= count {
		return fmt.Errorf("%w: index %d, wallet count %d", storage.ErrWalletIndexRange, index, count)
	}
	return nil
}

func (r *Registry) scheme() keyring.Scheme {
	scheme, err := keyring.ParseScheme(r.settings.Get().Scheme)
	if err != nil {
		return keyring.SchemeDefault
	}
	return scheme
}
