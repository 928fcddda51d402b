package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sable-wallet/walletd/internal/app"
	"sable-wallet/walletd/internal/app/contracts"
	"sable-wallet/walletd/internal/chain"
	"sable-wallet/walletd/internal/ledger"
	"sable-wallet/walletd/internal/platform/privacylog"
	"sable-wallet/walletd/internal/platform/ratelimiter"
	"sable-wallet/walletd/internal/securestore"
	"sable-wallet/walletd/internal/signing"
	"sable-wallet/walletd/internal/storage"
	"sable-wallet/walletd/internal/vault"
	"sable-wallet/walletd/internal/wallet"
	"sable-wallet/walletd/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

const ledgerHealthTimeout = 15 * time.Second

// ErrTooManyAttempts rejects seed material operations that arrive faster
// than any interactive client would issue them.
var ErrTooManyAttempts = errors.New("too many attempts for a sensitive operation")

// Service is the daemon-facing facade over the seed vault, the wallet
// registry and the ledger client. It owns metrics accounting and the
// notification hub the stream endpoint replays from.
type Service struct {
	vault     *vault.Vault
	settings  *storage.SettingsStore
	registry  *wallet.Registry
	ledger    ledger.Client
	endpoint  string
	notifier  contracts.NotificationBus
	logger    *slog.Logger
	metrics   *app.ServiceMetricsState
	sensitive *ratelimiter.MapLimiter
}

type Options struct {
	// DataDir holds the seed envelope and wallet settings; empty keeps
	// both in memory.
	DataDir        string
	LedgerEndpoint string
	Commitment     ledger.Commitment
	DeviceDialer   wallet.DeviceDialer
	// Client overrides the ledger client built from LedgerEndpoint.
	Client ledger.Client
	Logger *slog.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = app.DefaultLogger()
	}
	opts.Logger = slog.New(privacylog.WrapHandler(opts.Logger.Handler()))

	vaultPath := ""
	settingsPath := ""
	if opts.DataDir != "" {
		vaultPath = filepath.Join(opts.DataDir, "seed.vault")
		settingsPath = filepath.Join(opts.DataDir, "settings.json")
	}

	v := vault.New(vaultPath)
	if err := v.Load(); err != nil {
		return nil, fmt.Errorf("load seed vault: %w", err)
	}
	settings, err := storage.NewPersistentSettingsStore(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load wallet settings: %w", err)
	}

	client := opts.Client
	if client == nil {
		client = ledger.NewHTTPClient(opts.LedgerEndpoint, opts.Commitment)
	}

	return &Service{
		vault:     v,
		settings:  settings,
		registry:  wallet.NewRegistry(v, client, settings, opts.DeviceDialer, opts.Logger),
		ledger:    client,
		endpoint:  opts.LedgerEndpoint,
		notifier:  newNotificationHub(2048),
		logger:    opts.Logger,
		metrics:   app.NewServiceMetricsState(),
		sensitive: ratelimiter.New(1, 5, 10*time.Minute),
	}, nil
}

// allowSensitive gates the operations that handle raw seed material. The
// vault already backs off failed unlocks; this also slows scripted calls
// that present the correct password.
func (s *Service) allowSensitive(operation string) error {
	if s.sensitive.Allow(operation, time.Now()) {
		return nil
	}
	return ErrTooManyAttempts
}

func (s *Service) GetSeedStatus() models.SeedStatus {
	return models.SeedStatus{
		Present:  s.vault.HasEnvelope(),
		Unlocked: !s.vault.Locked(),
	}
}

func (s *Service) CreateSeed(password string) (mnemonic string, first models.AddressEntry, err error) {
	defer s.trackOperation("seed.create", &err)()
	if err = s.allowSensitive("seed.create"); err != nil {
		return "", models.AddressEntry{}, err
	}
	mnemonic, err = s.vault.Create(password)
	if err != nil {
		return "", models.AddressEntry{}, err
	}
	first, err = s.firstAddress()
	if err != nil {
		return "", models.AddressEntry{}, err
	}
	s.logger.Info("seed created", "address", first.Address)
	return mnemonic, first, nil
}

func (s *Service) ImportSeed(mnemonic, password string) (first models.AddressEntry, err error) {
	defer s.trackOperation("seed.import", &err)()
	if err = s.allowSensitive("seed.import"); err != nil {
		return models.AddressEntry{}, err
	}
	if _, err = s.vault.Import(mnemonic, password); err != nil {
		return models.AddressEntry{}, err
	}
	first, err = s.firstAddress()
	if err != nil {
		return models.AddressEntry{}, err
	}
	s.logger.Info("seed imported", "address", first.Address)
	return first, nil
}

func (s *Service) ValidateMnemonic(mnemonic string) models.MnemonicCheck {
	mnemonic = strings.TrimSpace(mnemonic)
	check := models.MnemonicCheck{
		Valid:     s.vault.ValidateMnemonic(mnemonic),
		WordCount: len(strings.Fields(mnemonic)),
	}
	if !check.Valid {
		check.Reason = "mnemonic failed wordlist or checksum validation"
	}
	return check
}

func (s *Service) ChangePassword(oldPassword, newPassword string) (err error) {
	defer s.trackOperation("seed.change_password", &err)()
	if err = s.allowSensitive("seed.change_password"); err != nil {
		return err
	}
	return s.vault.ChangePassword(oldPassword, newPassword)
}

func (s *Service) ExportMnemonic(password string) (mnemonic string, err error) {
	defer s.trackOperation("seed.export", &err)()
	if err = s.allowSensitive("seed.export"); err != nil {
		return "", err
	}
	mnemonic, err = s.vault.ExportMnemonic(password)
	if err != nil {
		return "", err
	}
	s.logger.Warn("mnemonic export executed")
	return mnemonic, nil
}

func (s *Service) Login(ctx context.Context, kind, password string, walletIndex uint32) (status models.WalletStatus, err error) {
	defer s.trackOperation("wallet.login", &err)()
	parsedKind, err := parseSignerKind(kind)
	if err != nil {
		return models.WalletStatus{}, err
	}
	err = s.registry.Login(ctx, wallet.Params{
		Kind:        parsedKind,
		Password:    password,
		WalletIndex: walletIndex,
	})
	if err != nil {
		return models.WalletStatus{}, err
	}
	status = s.GetWalletStatus()
	s.notify("notify.wallet.logged_in", map[string]any{
		"wallet_index": status.WalletIndex,
		"address":      status.Address,
		"signer_kind":  status.SignerKind,
	})
	return status, nil
}

func (s *Service) Logout() (err error) {
	defer s.trackOperation("wallet.logout", &err)()
	if err = s.registry.Logout(); err != nil {
		return err
	}
	s.notify("notify.wallet.logged_out", map[string]any{})
	return nil
}

func (s *Service) GetWalletStatus() models.WalletStatus {
	status := s.registry.Status()
	return models.WalletStatus{
		State:       string(status.State),
		WalletIndex: status.WalletIndex,
		WalletCount: status.WalletCount,
		Scheme:      status.Scheme,
		Address:     status.Address,
		SignerKind:  string(status.SignerKind),
	}
}

func (s *Service) ListAddresses(count uint32) ([]models.AddressEntry, error) {
	addrs, err := s.registry.ListDerivedAddresses(count)
	if err != nil {
		return nil, err
	}
	entries := make([]models.AddressEntry, 0, len(addrs))
	for i, addr := range addrs {
		fp, err := models.BuildAccountFingerprint(addr[:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.AddressEntry{WalletIndex: uint32(i), Address: addr.String(), Fingerprint: fp})
	}
	return entries, nil
}

func (s *Service) SelectWallet(ctx context.Context, walletIndex uint32) (status models.WalletStatus, err error) {
	defer s.trackOperation("wallet.select", &err)()
	if err = s.registry.SelectWallet(ctx, walletIndex); err != nil {
		return models.WalletStatus{}, err
	}
	status = s.GetWalletStatus()
	s.notify("notify.wallet.selected", map[string]any{
		"wallet_index": status.WalletIndex,
		"address":      status.Address,
	})
	return status, nil
}

func (s *Service) AddWallet() (models.WalletStatus, error) {
	if _, err := s.registry.AddWallet(); err != nil {
		return models.WalletStatus{}, err
	}
	return s.GetWalletStatus(), nil
}

func (s *Service) GetBalance(ctx context.Context) (info models.BalanceInfo, err error) {
	defer s.trackOperation("wallet.balance", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return models.BalanceInfo{}, err
	}
	lamports, err := session.Balance(ctx)
	if err != nil {
		return models.BalanceInfo{}, err
	}
	return models.BalanceInfo{
		Address:  session.PublicKey().String(),
		Lamports: lamports,
		Sol:      lamportsToSol(lamports),
	}, nil
}

func (s *Service) TransferSOL(ctx context.Context, destination string, lamports uint64) (receipt models.TransferReceipt, err error) {
	defer s.trackOperation("tx.transfer_sol", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return models.TransferReceipt{}, err
	}
	dest, err := chain.ParsePubkey(destination)
	if err != nil {
		return models.TransferReceipt{}, fmt.Errorf("destination address: %w", err)
	}
	sig, err := session.TransferSOL(ctx, dest, lamports)
	if err != nil {
		return models.TransferReceipt{}, err
	}
	receipt = models.TransferReceipt{
		Signature:   sig.String(),
		Source:      session.PublicKey().String(),
		Destination: dest.String(),
		Kind:        "sol",
		SubmittedAt: time.Now().UTC(),
	}
	s.notifyTransfer(receipt)
	return receipt, nil
}

func (s *Service) ListTokenAccounts(ctx context.Context) (views []models.TokenAccountView, err error) {
	defer s.trackOperation("token.list", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return nil, err
	}
	infos, err := session.TokenAccounts(ctx)
	if err != nil {
		return nil, err
	}
	views = make([]models.TokenAccountView, 0, len(infos))
	for _, info := range infos {
		views = append(views, models.TokenAccountView{
			Address:       info.Address.String(),
			Mint:          info.Mint.String(),
			Owner:         info.Owner.String(),
			Amount:        info.Amount.Raw,
			Decimals:      info.Amount.Decimals,
			UIAmount:      info.Amount.UI().String(),
			DecimalsKnown: info.Amount.Known,
			Frozen:        info.Frozen,
		})
	}
	return views, nil
}

func (s *Service) CreateTokenAccount(ctx context.Context, mint string) (created models.CreatedTokenAccount, err error) {
	defer s.trackOperation("token.create_account", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return models.CreatedTokenAccount{}, err
	}
	mintKey, err := chain.ParsePubkey(mint)
	if err != nil {
		return models.CreatedTokenAccount{}, fmt.Errorf("mint address: %w", err)
	}
	address, sig, err := session.CreateTokenAccount(ctx, mintKey)
	if err != nil {
		return models.CreatedTokenAccount{}, err
	}
	created = models.CreatedTokenAccount{
		Address:   address.String(),
		Mint:      mintKey.String(),
		Signature: sig.String(),
	}
	s.notify("notify.token.account_created", map[string]any{
		"address":   created.Address,
		"mint":      created.Mint,
		"signature": created.Signature,
	})
	return created, nil
}

func (s *Service) TransferToken(ctx context.Context, source, destination string, amount uint64, decimals uint8, memo string) (receipt models.TransferReceipt, err error) {
	defer s.trackOperation("token.transfer", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return models.TransferReceipt{}, err
	}
	sourceKey, err := chain.ParsePubkey(source)
	if err != nil {
		return models.TransferReceipt{}, fmt.Errorf("source address: %w", err)
	}
	destKey, err := chain.ParsePubkey(destination)
	if err != nil {
		return models.TransferReceipt{}, fmt.Errorf("destination address: %w", err)
	}
	sig, err := session.TransferToken(ctx, sourceKey, destKey, amount, decimals, memo)
	if err != nil {
		return models.TransferReceipt{}, err
	}
	kind := "token"
	if sourceKey == session.PublicKey() {
		kind = "sol"
	}
	receipt = models.TransferReceipt{
		Signature:   sig.String(),
		Source:      sourceKey.String(),
		Destination: destKey.String(),
		Kind:        kind,
		SubmittedAt: time.Now().UTC(),
	}
	s.notifyTransfer(receipt)
	return receipt, nil
}

func (s *Service) CloseTokenAccount(ctx context.Context, address string) (closed models.ClosedTokenAccount, err error) {
	defer s.trackOperation("token.close_account", &err)()
	session, err := s.registry.Session()
	if err != nil {
		return models.ClosedTokenAccount{}, err
	}
	addrKey, err := chain.ParsePubkey(address)
	if err != nil {
		return models.ClosedTokenAccount{}, fmt.Errorf("token account address: %w", err)
	}
	sig, err := session.CloseTokenAccount(ctx, addrKey)
	if err != nil {
		return models.ClosedTokenAccount{}, err
	}
	closed = models.ClosedTokenAccount{
		Address:   addrKey.String(),
		Signature: sig.String(),
	}
	s.notify("notify.token.account_closed", map[string]any{
		"address":   closed.Address,
		"signature": closed.Signature,
	})
	return closed, nil
}

func (s *Service) GetLedgerHealth(ctx context.Context) models.LedgerHealth {
	ctx, cancel := context.WithTimeout(ctx, ledgerHealthTimeout)
	defer cancel()

	report := ledger.Doctor(ctx, s.ledger)
	checks := make([]models.LedgerCheck, 0, len(report.Checks))
	for _, check := range report.Checks {
		checks = append(checks, models.LedgerCheck{
			Name:   check.Name,
			Pass:   check.Pass,
			Reason: check.Reason,
		})
	}
	return models.LedgerHealth{
		Ready:     report.Ready,
		Endpoint:  s.endpoint,
		Checks:    checks,
		CheckedAt: report.CheckedAt,
	}
}

func (s *Service) GetMetrics() models.MetricsSnapshot {
	counters, opStats, retries, lastAt := s.metrics.Snapshot()
	return models.MetricsSnapshot{
		ErrorCounters:       counters,
		OperationStats:      opStats,
		RetryAttemptsTotal:  retries,
		LastUpdatedAt:       lastAt,
		NotificationBacklog: s.notifier.BacklogSize(),
	}
}

func (s *Service) SubscribeNotifications(cursor int64) ([]NotificationEvent, <-chan NotificationEvent, func()) {
	return s.notifier.Subscribe(cursor)
}

func (s *Service) notify(method string, payload any) {
	s.notifier.Publish(method, payload)
}

func (s *Service) notifyTransfer(receipt models.TransferReceipt) {
	s.notify("notify.tx.submitted", map[string]any{
		"signature":   receipt.Signature,
		"source":      receipt.Source,
		"destination": receipt.Destination,
		"kind":        receipt.Kind,
	})
}

func (s *Service) firstAddress() (models.AddressEntry, error) {
	entries, err := s.ListAddresses(1)
	if err != nil {
		return models.AddressEntry{}, err
	}
	if len(entries) == 0 {
		return models.AddressEntry{}, errors.New("no address derived")
	}
	return entries[0], nil
}

func (s *Service) recordError(category string, err error) {
	s.metrics.RecordError(category)
	s.logger.Error("service error", "category", category, "error", err.Error())
}

func (s *Service) recordOp(operation string, started time.Time) {
	s.metrics.RecordOp(operation, started)
}

func (s *Service) recordOpError(operation string) {
	s.metrics.RecordOpError(operation)
}

func (s *Service) trackOperation(operation string, errRef *error) func() {
	started := time.Now()
	return func() {
		s.recordOp(operation, started)
		if errRef != nil && *errRef != nil {
			s.recordOpError(operation)
			s.recordError(errorCategory(*errRef), *errRef)
		}
	}
}

func parseSignerKind(kind string) (signing.Kind, error) {
	switch strings.TrimSpace(kind) {
	case "", string(signing.KindLocal):
		return signing.KindLocal, nil
	case string(signing.KindDevice):
		return signing.KindDevice, nil
	default:
		return "", fmt.Errorf("%w: %q", wallet.ErrUnknownProviderKind, kind)
	}
}

func lamportsToSol(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9).String()
}

// errorCategory maps a failure onto the counter family the metrics
// snapshot reports.
func errorCategory(err error) string {
	var categorized *app.CategorizedError
	if errors.As(err, &categorized) {
		return categorized.Category
	}
	var nodeErr *ledger.RPCError
	var pathErr *os.PathError
	switch {
	case errors.As(err, &nodeErr),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, signing.ErrDeviceNotFound),
		errors.Is(err, signing.ErrDeviceComm):
		return "network"
	case errors.Is(err, vault.ErrInvalidPassword),
		errors.Is(err, vault.ErrPasswordLocked),
		errors.Is(err, ErrTooManyAttempts),
		errors.Is(err, securestore.ErrAuthFailed),
		errors.Is(err, signing.ErrUserRejected),
		errors.Is(err, signing.ErrSignerBusy),
		errors.Is(err, signing.ErrDeviceProtocol),
		errors.Is(err, signing.ErrSignerClosed):
		return "crypto"
	case errors.As(err, &pathErr):
		return "storage"
	default:
		return "api"
	}
}
