// Package vault implements the unlocked-session API on top of storage and
// crypto.
//
// A Session moves from closed to unlocked in Create or Open and back to
// closed in Close. Open derives the master key with Argon2id from the
// passphrase and the stored salt, then checks it against the verification
// tag before anything else is read. Two HKDF subkeys are derived from the
// master key: one seals the verification tag, the other seals record fields.
// The master key is cleared as soon as the subkeys exist; the records key is
// cleared by Close.
//
// Every field of a credential is sealed on its own with the field name as
// associated data, so envelopes cannot be swapped between fields.
package vault
