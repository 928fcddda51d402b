package vault

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sable-wallet/walletd/internal/securestore"

	"github.com/tyler-smith/go-bip39"
)

var (
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrSeedNotAvailable = errors.New("seed is not available")
	ErrPasswordRequired = errors.New("password is required")
	ErrMnemonicRequired = errors.New("mnemonic is required")
	ErrPasswordLocked   = errors.New("password attempts are temporarily locked")
	ErrNoEnvelope       = errors.New("no seed envelope is stored")
)

// Vault owns the master seed. The mnemonic lives on disk only inside a
// passphrase-encrypted envelope; the derived 64-byte seed lives in memory
// only while the vault is unlocked and is wiped on Lock.
type Vault struct {
	mu             sync.RWMutex
	path           string
	envelope       []byte
	seed           []byte
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

// New builds a vault persisting its envelope at path. An empty path keeps
// the envelope in memory only.
func New(path string) *Vault {
	return &Vault{path: path, now: time.Now}
}

func newWithClock(path string, now func() time.Time) *Vault {
	return &Vault{path: path, now: now}
}

// Load reads a previously persisted envelope. A missing file is not an
// error; the vault simply starts empty.
func (v *Vault) Load() error {
	if v.path == "" {
		return nil
	}
	raw, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed envelope: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.envelope = raw
	return nil
}

func (v *Vault) HasEnvelope() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.envelope != nil
}

func (v *Vault) Locked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.seed == nil
}

// Create generates a fresh 24-word mnemonic, stores its envelope under the
// password and leaves the vault unlocked.
func (v *Vault) Create(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrPasswordRequired
	}
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", err
	}
	return v.Import(mnemonic, password)
}

// Import validates and stores an existing mnemonic, replacing any previous
// envelope, and leaves the vault unlocked.
func (v *Vault) Import(mnemonic, password string) (string, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return "", ErrMnemonicRequired
	}
	if strings.TrimSpace(password) == "" {
		return "", ErrPasswordRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", ErrInvalidMnemonic
	}

	envelope, err := securestore.Encrypt(password, []byte(mnemonic))
	if err != nil {
		return "", err
	}
	if err := v.persist(envelope); err != nil {
		return "", err
	}
	seed := bip39.NewSeed(mnemonic, "")

	v.mu.Lock()
	defer v.mu.Unlock()
	zeroBytes(v.seed)
	v.envelope = envelope
	v.seed = seed
	v.resetPasswordAttemptState()
	return mnemonic, nil
}

// Unlock opens the stored envelope with the password and brings the seed
// into memory. Failed attempts back off exponentially.
func (v *Vault) Unlock(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordRequired
	}

	v.mu.Lock()
	envelope := v.envelope
	if err := v.ensureNotLockedOut(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()
	if envelope == nil {
		return ErrNoEnvelope
	}

	plaintext, err := securestore.Decrypt(password, envelope)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.onFailedPasswordAttempt()
		return ErrInvalidPassword
	}
	mnemonic := strings.TrimSpace(string(plaintext))
	zeroBytes(plaintext)
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("%w: corrupted mnemonic", ErrInvalidMnemonic)
	}
	seed := bip39.NewSeed(mnemonic, "")

	v.mu.Lock()
	defer v.mu.Unlock()
	zeroBytes(v.seed)
	v.seed = seed
	v.resetPasswordAttemptState()
	return nil
}

// Lock wipes the in-memory seed. The envelope stays for the next Unlock.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	zeroBytes(v.seed)
	v.seed = nil
}

// Seed returns a copy of the master seed, or ErrSeedNotAvailable while the
// vault is locked.
func (v *Vault) Seed() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.seed == nil {
		return nil, ErrSeedNotAvailable
	}
	return append([]byte(nil), v.seed...), nil
}

// ExportMnemonic proves the password against the envelope and returns the
// mnemonic for backup display.
func (v *Vault) ExportMnemonic(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrPasswordRequired
	}

	v.mu.Lock()
	envelope := v.envelope
	if err := v.ensureNotLockedOut(); err != nil {
		v.mu.Unlock()
		return "", err
	}
	v.mu.Unlock()
	if envelope == nil {
		return "", ErrNoEnvelope
	}

	plaintext, err := securestore.Decrypt(password, envelope)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.onFailedPasswordAttempt()
		return "", ErrInvalidPassword
	}
	v.mu.Lock()
	v.resetPasswordAttemptState()
	v.mu.Unlock()

	mnemonic := strings.TrimSpace(string(plaintext))
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", fmt.Errorf("%w: corrupted mnemonic", ErrInvalidMnemonic)
	}
	return mnemonic, nil
}

// ChangePassword re-encrypts the envelope under a new password. The unlock
// state is left as it was.
func (v *Vault) ChangePassword(oldPassword, newPassword string) error {
	oldPassword = strings.TrimSpace(oldPassword)
	newPassword = strings.TrimSpace(newPassword)
	if oldPassword == "" || newPassword == "" {
		return ErrPasswordRequired
	}

	v.mu.Lock()
	envelope := v.envelope
	if err := v.ensureNotLockedOut(); err != nil {
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()
	if envelope == nil {
		return ErrNoEnvelope
	}

	plaintext, err := securestore.Decrypt(oldPassword, envelope)
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		v.onFailedPasswordAttempt()
		return ErrInvalidPassword
	}
	newEnvelope, err := securestore.Encrypt(newPassword, plaintext)
	zeroBytes(plaintext)
	if err != nil {
		return err
	}
	if err := v.persist(newEnvelope); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.envelope = newEnvelope
	v.resetPasswordAttemptState()
	return nil
}

func (v *Vault) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

func (v *Vault) persist(envelope []byte) error {
	if v.path == "" {
		return nil
	}
	if err := securestore.WriteFileAtomic(v.path, envelope, 0o600); err != nil {
		return fmt.Errorf("persist seed envelope: %w", err)
	}
	return nil
}

func (v *Vault) ensureNotLockedOut() error {
	if v.lockedUntil.IsZero() {
		return nil
	}
	if v.now().Before(v.lockedUntil) {
		return ErrPasswordLocked
	}
	return nil
}

func (v *Vault) onFailedPasswordAttempt() {
	v.failedAttempts++
	v.lockedUntil = v.now().Add(failedAttemptBackoff(v.failedAttempts))
}

func (v *Vault) resetPasswordAttemptState() {
	v.failedAttempts = 0
	v.lockedUntil = time.Time{}
}

func failedAttemptBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// 1s, 2s, 4s... up to 32s max.
	shift := attempt - 1
	if shift > 5 {
		shift = 5
	}
	return time.Second * time.Duration(1<<shift)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
