package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/prompt"
	"github.com/illarion/lockpass/internal/vault"
)

// Keyring dispatches the keyring subcommands
func Keyring(ctx context.Context, a *App, action string) error {
	switch action {
	case "save":
		return KeyringSave(ctx, a)
	case "delete":
		return KeyringDelete(ctx, a)
	case "status":
		return KeyringStatus(ctx, a)
	}
	return fmt.Errorf("unknown keyring action %q (use save, delete or status)", action)
}

// KeyringSave verifies the passphrase and saves it to the OS keyring
func KeyringSave(ctx context.Context, a *App) error {
	path, err := a.existingVault()
	if err != nil {
		return err
	}

	passphrase := prompt.PassphraseFromEnv()
	if passphrase == nil {
		if passphrase, err = a.readPassphrase(ctx, "Enter passphrase: "); err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(passphrase)

	// Verify passphrase is correct
	if err := vault.Verify(path, passphrase, a.Options); err != nil {
		return err
	}

	id := a.vaultID(path)
	if id == "" {
		return fmt.Errorf("failed to read vault id")
	}
	if err := keyring.SavePassphrase(id, passphrase); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}

	a.printf("Passphrase saved to keyring\n")
	return nil
}

// KeyringDelete removes the passphrase from the OS keyring
func KeyringDelete(ctx context.Context, a *App) error {
	path, err := a.existingVault()
	if err != nil {
		return err
	}

	id := a.vaultID(path)
	if id == "" || !keyring.HasPassphrase(id) {
		a.printf("No passphrase stored in keyring\n")
		return nil
	}
	if err := keyring.DeletePassphrase(id); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	a.printf("Passphrase removed from keyring\n")
	return nil
}

// KeyringStatus checks if a passphrase is stored in the keyring
func KeyringStatus(ctx context.Context, a *App) error {
	path, err := a.existingVault()
	if err != nil {
		return err
	}

	if id := a.vaultID(path); id != "" && keyring.HasPassphrase(id) {
		a.printf("Passphrase: stored in keyring\n")
	} else {
		a.printf("Passphrase: not stored\n")
	}
	return nil
}
