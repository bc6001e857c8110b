// Package crypto provides cryptographic operations for lockpass.
//
// Key derivation uses Argon2id with:
//   - 32-byte random salt (stored unencrypted in the vault)
//   - time=3, memory=64 MiB, threads=4 by default, fixed per vault
//
// The master key is never used directly. HKDF-SHA-256 expands it into a
// records key and a verification key.
//
// Envelopes are nonce || ciphertext || tag:
//   - AES-256-GCM: 12-byte random nonce, 16-byte tag (default)
//   - XChaCha20-Poly1305: 24-byte random nonce, 16-byte tag
//
// Every Seal draws a fresh nonce from crypto/rand. Open reports every
// failure as ErrIntegrityFailure so callers cannot tell a wrong key from a
// modified envelope.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Codec.Destroy() when done with encryption operations
//   - LockMemory() keeps key buffers out of swap where supported
package crypto
