package cmd

import (
	"context"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
)

// Passwd changes the vault passphrase and re-encrypts every record
func Passwd(ctx context.Context, a *App) error {
	s, source, err := a.OpenSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	newPassphrase, err := a.Prompt.ReadPassphraseConfirm("Enter new passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(newPassphrase)

	if err := s.ChangePassphrase(newPassphrase); err != nil {
		return err
	}

	// Keep a cached passphrase in step with the vault
	if id, err := s.VaultID(); err == nil && a.Keyring && (source == SourceKeyring || keyring.HasPassphrase(id)) {
		if err := keyring.SavePassphrase(id, newPassphrase); err == nil {
			a.printf("Keyring updated with new passphrase\n")
		} else {
			a.warnf("failed to update keyring: %s", err)
		}
	}

	// Compact database after rewriting all data
	if err := s.Compact(); err != nil {
		a.warnf("compaction failed: %s", err)
	}

	a.printf("Passphrase changed successfully\n")
	return nil
}
