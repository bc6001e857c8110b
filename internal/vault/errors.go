package vault

import (
	"errors"
	"fmt"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/storage"
)

// Sentinel errors for errors.Is() checks. Errors from the storage and
// crypto packages are re-exported so callers only need this package.
var (
	// ErrAuthenticationFailed is returned by Open for a wrong passphrase or a
	// tampered verification tag. The caller may ask again.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSessionNotOpen is returned by every operation on a closed session.
	ErrSessionNotOpen = errors.New("session not open")

	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyPassphrase is returned when an empty passphrase is supplied.
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")

	ErrIntegrityFailure = crypto.ErrIntegrityFailure
	ErrAlreadyExists    = storage.ErrAlreadyExists
	ErrVaultBusy        = storage.ErrBusy
	ErrNotInitialized   = storage.ErrNotInitialized
	ErrReadOnly         = storage.ErrReadOnly
)

// RecordError reports a single record that could not be decrypted or
// decoded. It unwraps to ErrIntegrityFailure.
type RecordError struct {
	ID    uint64
	Field string // "username", "secret", "note", or "record" when undecodable
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s: %v", e.ID, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}
