package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Suite names the AEAD construction used for envelopes
type Suite string

const (
	SuiteAESGCM  Suite = "aes-256-gcm"
	SuiteXChaCha Suite = "xchacha20-poly1305"

	TagSize = 16 // Authentication tag size for both suites
)

// HKDF info strings for subkeys derived from the master key
const (
	PurposeRecords = "lockpass:records:v1"
	PurposeVerify  = "lockpass:verify:v1"
)

var (
	ErrIntegrityFailure = errors.New("integrity check failed")
	ErrUnknownSuite     = errors.New("unknown cipher suite")
	ErrInvalidKeySize   = errors.New("invalid key size")
)

// ParseSuite maps a stored or configured suite name to a Suite
func ParseSuite(name string) (Suite, error) {
	switch Suite(name) {
	case SuiteAESGCM, "":
		return SuiteAESGCM, nil
	case SuiteXChaCha:
		return SuiteXChaCha, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSuite, name)
}

// NonceSize returns the envelope nonce width for the suite
func (s Suite) NonceSize() int {
	if s == SuiteXChaCha {
		return chacha20poly1305.NonceSizeX
	}
	return 12
}

// Codec seals and opens envelopes of the form nonce || ciphertext || tag.
type Codec struct {
	key   []byte
	suite Suite
	aead  cipher.AEAD
}

// NewCodec creates a codec bound to a 32-byte key. The codec keeps its own
// copy of the key; call Destroy when done.
func NewCodec(key []byte, suite Suite) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), KeySize)
	}

	own := make([]byte, KeySize)
	copy(own, key)
	// Best effort: mlock can fail under a low RLIMIT_MEMLOCK
	_ = LockMemory(own)

	aead, err := newAEAD(own, suite)
	if err != nil {
		ClearBytes(own)
		_ = UnlockMemory(own)
		return nil, err
	}

	return &Codec{key: own, suite: suite, aead: aead}, nil
}

var newAEAD = func(key []byte, suite Suite) (cipher.AEAD, error) {
	switch suite {
	case SuiteAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return aead, nil
	case SuiteXChaCha:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create XChaCha20-Poly1305: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, suite)
	}
}

// Suite returns the codec's cipher suite
func (c *Codec) Suite() Suite {
	return c.suite
}

// Seal encrypts and authenticates plaintext under a fresh random nonce.
// aad is authenticated but not stored in the envelope.
func (c *Codec) Seal(plaintext, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()

	out := make([]byte, nonceSize, nonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return c.aead.Seal(out, out[:nonceSize], plaintext, aad), nil
}

// Open authenticates and decrypts an envelope. A wrong key, a modified byte
// and a truncated envelope all produce ErrIntegrityFailure.
func (c *Codec) Open(envelope, aad []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(envelope) < nonceSize+c.aead.Overhead() {
		return nil, ErrIntegrityFailure
	}

	plaintext, err := c.aead.Open(nil, envelope[:nonceSize], envelope[nonceSize:], aad)
	if err != nil {
		return nil, ErrIntegrityFailure
	}
	return plaintext, nil
}

// Destroy clears the codec's key from memory
func (c *Codec) Destroy() {
	ClearBytes(c.key)
	_ = UnlockMemory(c.key)
}

// EnvelopeNonce returns the nonce prefix of an envelope for the given suite
func EnvelopeNonce(envelope []byte, suite Suite) ([]byte, error) {
	n := suite.NonceSize()
	if len(envelope) < n+TagSize {
		return nil, ErrIntegrityFailure
	}
	return envelope[:n], nil
}

// DeriveSubkey expands the master key into an independent key for one purpose
// using HKDF-SHA-256.
func DeriveSubkey(master []byte, purpose string) ([]byte, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(master), KeySize)
	}

	reader := hkdf.New(sha256.New, master, nil, []byte(purpose))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive subkey: %w", err)
	}
	return key, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
