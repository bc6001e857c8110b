// Package git warns when a vault file lives inside a git work tree.
//
// Checks performed:
//   - Whether the vault is tracked by git (should not be)
//   - Whether the vault is in .gitignore (should be)
//
// The vault is encrypted, but committing it publishes the salt and every
// envelope for offline guessing.
package git
