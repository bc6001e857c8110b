package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lockpass"

// ErrNotFound is returned when no passphrase is stored for the vault
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores a vault passphrase in the OS keyring
func SavePassphrase(vaultID string, passphrase []byte) error {
	return keyring.Set(serviceName, vaultID, string(passphrase))
}

// GetPassphrase retrieves a vault passphrase from the OS keyring
func GetPassphrase(vaultID string) ([]byte, error) {
	passphrase, err := keyring.Get(serviceName, vaultID)
	if err != nil {
		return nil, err
	}
	return []byte(passphrase), nil
}

// DeletePassphrase removes a vault passphrase from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassphrase(vaultID string) error {
	err := keyring.Delete(serviceName, vaultID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassphrase checks if a passphrase is stored for the vault
func HasPassphrase(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
