package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 32 // Salt size in bytes
	KeySize  = 32 // Master key size (256 bits)

	KDFArgon2id = "argon2id"

	DefaultTime    = 3         // Argon2id passes
	DefaultMemory  = 64 * 1024 // Argon2id memory in KiB (64 MiB)
	DefaultThreads = 4

	// Lower bounds accepted when loading parameters from disk
	minTime   = 1
	minMemory = 8 * 1024
	maxMemory = 4 * 1024 * 1024
)

var ErrInvalidKDFParams = errors.New("invalid key derivation parameters")

// KDFParams are the Argon2id work factors. They are fixed for a vault
// once it has been created.
type KDFParams struct {
	Algorithm string `json:"algorithm"`
	Time      uint32 `json:"time"`
	Memory    uint32 `json:"memory"`
	Threads   uint8  `json:"threads"`
}

// DefaultKDFParams returns the work factors used for new vaults.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algorithm: KDFArgon2id,
		Time:      DefaultTime,
		Memory:    DefaultMemory,
		Threads:   DefaultThreads,
	}
}

// KDF derives the master key from a passphrase
type KDF struct {
	Salt   []byte
	Params KDFParams
}

// NewKDF creates a new KDF with a random salt and the given parameters
func NewKDF(params KDFParams) (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	kdf := &KDF{Salt: salt, Params: params}
	if err := kdf.Validate(); err != nil {
		return nil, err
	}
	return kdf, nil
}

// Validate rejects salts and work factors that were not produced by NewKDF.
// Parameters come from an unauthenticated part of the vault file, so a
// trivially cheap setting must not be accepted.
func (k *KDF) Validate() error {
	if len(k.Salt) != SaltSize {
		return fmt.Errorf("%w: salt is %d bytes, want %d", ErrInvalidKDFParams, len(k.Salt), SaltSize)
	}
	p := k.Params
	if p.Algorithm != KDFArgon2id {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidKDFParams, p.Algorithm)
	}
	if p.Time < minTime || p.Memory < minMemory || p.Memory > maxMemory || p.Threads == 0 {
		return fmt.Errorf("%w: t=%d m=%d p=%d", ErrInvalidKDFParams, p.Time, p.Memory, p.Threads)
	}
	return nil
}

// DeriveKey derives the master key from a passphrase using Argon2id.
// The same passphrase, salt and parameters always yield the same key.
func (k *KDF) DeriveKey(passphrase []byte) []byte {
	return argon2.IDKey(passphrase, k.Salt, k.Params.Time, k.Params.Memory, k.Params.Threads, KeySize)
}
