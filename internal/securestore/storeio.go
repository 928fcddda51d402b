package securestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data through a temp file in the target directory
// and renames it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// WriteEncryptedFile seals plaintext under the passphrase and persists the
// envelope atomically with owner-only permissions.
func WriteEncryptedFile(path, passphrase string, plaintext []byte) error {
	encrypted, err := Encrypt(passphrase, plaintext)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, encrypted, 0o600); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

// ReadEncryptedFile loads an envelope file and opens it with the
// passphrase.
func ReadEncryptedFile(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(passphrase, raw)
}
