package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sable-wallet/walletd/internal/keyring"
	"sable-wallet/walletd/internal/securestore"
)

var ErrWalletIndexRange = errors.New("wallet index out of range")

// WalletSettings is the small persisted state the daemon keeps outside the
// seed envelope: which wallet is selected, how many the user has created
// and which derivation scheme they run.
type WalletSettings struct {
	WalletIndex uint32 `json:"wallet_index"`
	WalletCount uint32 `json:"wallet_count"`
	Scheme      string `json:"scheme"`
}

func defaultWalletSettings() WalletSettings {
	return WalletSettings{
		WalletIndex: 0,
		WalletCount: 1,
		Scheme:      string(keyring.SchemeDefault),
	}
}

type SettingsStore struct {
	mu       sync.RWMutex
	settings WalletSettings
	path     string
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: defaultWalletSettings()}
}

func NewPersistentSettingsStore(path string) (*SettingsStore, error) {
	s := &SettingsStore{settings: defaultWalletSettings(), path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SettingsStore) Get() WalletSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsStore) SetWalletIndex(index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= s.settings.WalletCount {
		return fmt.Errorf("%w: index %d, wallet count %d", ErrWalletIndexRange, index, s.settings.WalletCount)
	}
	next := s.settings
	next.WalletIndex = index
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// AddWallet grows the wallet count by one and returns the index of the new
// wallet.
func (s *SettingsStore) AddWallet() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	next.WalletCount++
	if err := s.persistLocked(next); err != nil {
		return 0, err
	}
	s.settings = next
	return next.WalletCount - 1, nil
}

func (s *SettingsStore) SetScheme(scheme string) error {
	parsed, err := keyring.ParseScheme(scheme)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	next.Scheme = string(parsed)
	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

func (s *SettingsStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var loaded WalletSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode wallet settings: %w", err)
	}
	s.settings = normalizeSettings(loaded)
	return nil
}

func (s *SettingsStore) persistLocked(settings WalletSettings) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return securestore.WriteFileAtomic(s.path, data, 0o600)
}

// normalizeSettings repairs values a hand-edited or stale file may carry so
// a bad settings file never bricks startup.
func normalizeSettings(in WalletSettings) WalletSettings {
	out := in
	if out.WalletCount == 0 {
		out.WalletCount = 1
	}
	if out.WalletIndex >= out.WalletCount {
		out.WalletIndex = 0
	}
	if _, err := keyring.ParseScheme(out.Scheme); err != nil {
		out.Scheme = string(keyring.SchemeDefault)
	}
	return out
}
