// Package storage provides the BBolt database interface for lockpass.
//
// Database structure uses three buckets:
//   - config: salt, KDF parameters, cipher suite, vault id, timestamps (unencrypted)
//   - private: the passphrase verification tag
//   - records: one JSON document of sealed envelopes per credential,
//     keyed by the big-endian record id
//
// The unencrypted config bucket lets lockpass status work without a
// passphrase. Record ids come from the records bucket sequence and are
// never reused, even after deletion or compaction.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
// Every mutation runs in one read-write transaction, so a crash never leaves
// a half-written record. Read-write handles hold an exclusive flock on the
// file for their lifetime; a second opener gets ErrBusy after a short timeout.
package storage
